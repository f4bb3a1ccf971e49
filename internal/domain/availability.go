package domain

import "time"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Availability is a bookable time slot, optionally tied to a service.
// Date is stored as YYYY-MM-DD so lexical order matches calendar order.
type Availability struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceID *int64    `gorm:"index" json:"serviceId"`
	Service   *Service  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Date      string    `gorm:"size:10;index;not null" json:"date"`
	StartTime string    `gorm:"size:5;not null" json:"startTime"`
	EndTime   string    `gorm:"size:5;not null" json:"endTime"`
	Available bool      `gorm:"not null" json:"available"` // defaults to true on create
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Availability) TableName() string {
	return "availabilities"
}
