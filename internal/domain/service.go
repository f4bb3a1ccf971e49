package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is a bookable salon service (haircut, coloring...).
type Service struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"size:200;index;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Duration    int             `gorm:"not null" json:"duration"` // minutes
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (Service) TableName() string {
	return "services"
}
