package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/webserver"
	"gorm.io/gorm"
)

type orderProductPayload struct {
	OrderID   int64 `json:"orderId" validate:"required,gt=0"`
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type orderProductUpdatePayload struct {
	ProductID *int64 `json:"productId" validate:"omitempty,gt=0"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1"`
}

func registerOrderProductRoutes(s *webserver.Server) {
	s.ApiGET("/api/productOrders", listOrderProducts, auth.RequireAuth)
	s.ApiGET("/api/productOrders/:id", getOrderProduct, auth.RequireAuth)
	s.ApiPOST("/api/productOrders", createOrderProduct, auth.RequireAuth)
	s.ApiPUT("/api/productOrders/:id", updateOrderProduct, auth.RequireAuth)
	s.ApiPATCH("/api/productOrders/:id", updateOrderProduct, auth.RequireAuth)
	s.ApiDELETE("/api/productOrders/:id", deleteOrderProduct, auth.RequireAuth)
}

func listOrderProducts(c echo.Context) error {
	db := GetDB(c).Model(&domain.OrderProduct{})

	orderID, present, valid := queryID(c, "orderId")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid orderId filter", nil)
	}
	if present {
		db = db.Where("order_id = ?", orderID)
	}
	productID, present, valid := queryID(c, "productId")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid productId filter", nil)
	}
	if present {
		db = db.Where("product_id = ?", productID)
	}
	if ident := identity(c); !ident.IsAdmin() {
		db = db.Where("order_id IN (?)", GetDB(c).Model(&domain.Order{}).Select("id").Where("user_id = ?", ident.UserID))
	}

	var rows []domain.OrderProduct
	if err := db.Preload("Product").Order("id DESC").Find(&rows).Error; err != nil {
		return databaseError(c, "Failed to query product orders", err)
	}
	return ok(c, rows)
}

// loadOrderProduct fetches a line whose order the caller may act on.
func loadOrderProduct(c echo.Context, id int64) (*domain.OrderProduct, error) {
	var op domain.OrderProduct
	err := GetDB(c).Preload("Product").Where("id = ?", id).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "ORDER_PRODUCT_NOT_FOUND", "Product order not found", nil)
	} else if err != nil {
		return nil, databaseError(c, "Failed to query product order", err)
	}
	if err := checkOrderOwner(c, op.OrderID); err != nil {
		return nil, err
	}
	return &op, nil
}

// checkOrderOwner answers 404 for a missing order and 403 when a non-admin
// does not own it.
func checkOrderOwner(c echo.Context, orderID int64) error {
	var o domain.Order
	err := GetDB(c).Select("id", "user_id").Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", orderID)
	} else if err != nil {
		return databaseError(c, "Failed to query order", err)
	}
	if ident := identity(c); !ident.IsAdmin() && ident.UserID != o.UserID {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return nil
}

func checkProductExists(c echo.Context, productID int64) error {
	var count int64
	if err := GetDB(c).Model(&domain.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return databaseError(c, "Failed to query product", err)
	}
	if count == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", productID)
	}
	return nil
}

func getOrderProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product order ID", nil)
	}
	op, err := loadOrderProduct(c, id)
	if err != nil {
		return err
	}
	return ok(c, op)
}

// saveLine writes op and refreshes its order's total in one transaction,
// then emits order:updated.
func saveLine(c echo.Context, op *domain.OrderProduct, status int) error {
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product").Save(op).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, op.OrderID)
	})
	if err != nil {
		return databaseError(c, "Failed to save product order", err)
	}
	if err := GetDB(c).Preload("Product").Where("id = ?", op.ID).First(op).Error; err != nil {
		return databaseError(c, "Failed to query product order", err)
	}
	publishOrderUpdated(c, op.OrderID)
	return c.JSON(status, op)
}

func publishOrderUpdated(c echo.Context, orderID int64) {
	var o domain.Order
	if err := preloadItems(GetDB(c)).Where("id = ?", orderID).First(&o).Error; err == nil {
		publish(c, events.OrderUpdated, &o)
	}
}

func createOrderProduct(c echo.Context) error {
	var payload orderProductPayload
	if err := bindAndValidate(c, &payload, "product order"); err != nil {
		return err
	}
	if err := checkOrderOwner(c, payload.OrderID); err != nil {
		return err
	}
	if err := checkProductExists(c, payload.ProductID); err != nil {
		return err
	}

	op := domain.OrderProduct{OrderID: payload.OrderID, ProductID: payload.ProductID, Quantity: payload.Quantity}
	return saveLine(c, &op, http.StatusCreated)
}

func updateOrderProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product order ID", nil)
	}
	var payload orderProductUpdatePayload
	if err := bindAndValidate(c, &payload, "product order"); err != nil {
		return err
	}

	op, err := loadOrderProduct(c, id)
	if err != nil {
		return err
	}
	if payload.ProductID != nil {
		if err := checkProductExists(c, *payload.ProductID); err != nil {
			return err
		}
		op.ProductID = *payload.ProductID
		op.Product = nil
	}
	if payload.Quantity != nil {
		op.Quantity = *payload.Quantity
	}
	return saveLine(c, op, http.StatusOK)
}

func deleteOrderProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product order ID", nil)
	}
	op, err := loadOrderProduct(c, id)
	if err != nil {
		return err
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.OrderProduct{}, op.ID).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, op.OrderID)
	})
	if err != nil {
		return databaseError(c, "Failed to delete product order", err)
	}
	publishOrderUpdated(c, op.OrderID)
	return ok(c, map[string]interface{}{"id": id})
}
