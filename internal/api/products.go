package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/webserver"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type productPayload struct {
	Name        string           `json:"name" validate:"required,min=1,max=200"`
	Description string           `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Image       string           `json:"image" validate:"omitempty,max=1024"`
}

type productUpdatePayload struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Image       *string          `json:"image" validate:"omitempty,max=1024"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes(s *webserver.Server) {
	s.ApiGET("/api/products", listProducts)
	s.ApiGET("/api/products/:id", getProduct)
	s.ApiPOST("/api/products", createProduct, adminOnly)
	s.ApiPUT("/api/products/:id", updateProduct, adminOnly)
	s.ApiPATCH("/api/products/:id", updateProduct, adminOnly)
	s.ApiDELETE("/api/products/:id", deleteProduct, adminOnly)
}

func listProducts(c echo.Context) error {
	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = containsFilter(db, q, "name")
	}

	var rows []domain.Product
	if err := db.Order("id DESC").Find(&rows).Error; err != nil {
		return databaseError(c, "Failed to query products", err)
	}
	return ok(c, rows)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query product", err)
	}
	return ok(c, p)
}

func checkPrice(c echo.Context, price *decimal.Decimal) error {
	if price.IsNegative() {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "price must be greater than or equal to 0", []string{"price"})
	}
	return nil
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := bindAndValidate(c, &payload, "product"); err != nil {
		return err
	}
	if payload.Price == nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "price is required", []string{"price"})
	}
	if err := checkPrice(c, payload.Price); err != nil {
		return err
	}

	p := domain.Product{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Price:       *payload.Price,
		Stock:       payload.Stock,
		Image:       strings.TrimSpace(payload.Image),
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return databaseError(c, "Failed to create product", err)
	}
	return created(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload productUpdatePayload
	if err := bindAndValidate(c, &payload, "product"); err != nil {
		return err
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query product", err)
	}

	if payload.Name != nil {
		p.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		p.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Price != nil {
		if err := checkPrice(c, payload.Price); err != nil {
			return err
		}
		p.Price = *payload.Price
	}
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	if payload.Image != nil {
		p.Image = strings.TrimSpace(*payload.Image)
	}

	if err := GetDB(c).Save(&p).Error; err != nil {
		return databaseError(c, "Failed to update product", err)
	}
	return ok(c, p)
}

// deleteProduct removes the product together with the order lines that
// reference it.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var affected []int64
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.OrderProduct{}).Where("product_id = ?", id).
			Distinct().Pluck("order_id", &affected).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.OrderProduct{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		for _, orderID := range affected {
			if err := recomputeOrderTotal(tx, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to delete product", err)
	}
	for _, orderID := range affected {
		publishOrderUpdated(c, orderID)
	}
	return ok(c, map[string]interface{}{"id": id})
}
