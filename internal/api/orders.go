package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type orderItemPayload struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type orderPayload struct {
	UserID   int64              `json:"userId" validate:"omitempty,gt=0"`
	Status   string             `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Products []orderItemPayload `json:"products" validate:"required,min=1,dive"`
}

type orderUpdatePayload struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	UserID *int64  `json:"userId" validate:"omitempty,gt=0"`
}

// orderCSV is one exported order row
type orderCSV struct {
	ID        int64  `csv:"id"`
	UserID    int64  `csv:"userId"`
	Status    string `csv:"status"`
	Total     string `csv:"total"`
	Items     string `csv:"items"`
	CreatedAt string `csv:"createdAt"`
}

// errMissingRef marks a referenced row that does not exist.
type errMissingRef struct {
	code    string
	message string
	id      int64
}

func (e *errMissingRef) Error() string {
	return e.message
}

func registerOrderRoutes(s *webserver.Server) {
	s.ApiGET("/api/orders", listOrders, auth.RequireAuth)
	s.ApiGET("/api/orders/export", exportOrders, adminOnly)
	s.ApiGET("/api/orders/:id", getOrder, auth.RequireAuth)
	s.ApiPOST("/api/orders", createOrder, auth.RequireAuth)
	s.ApiPUT("/api/orders/:id", updateOrder, auth.RequireAuth)
	s.ApiPATCH("/api/orders/:id", updateOrder, auth.RequireAuth)
	s.ApiDELETE("/api/orders/:id", deleteOrder, auth.RequireAuth)
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Items.Product")
}

func listOrders(c echo.Context) error {
	db := GetDB(c).Model(&domain.Order{})

	ident := identity(c)
	if !ident.IsAdmin() {
		db = db.Where("user_id = ?", ident.UserID)
	} else {
		userID, present, valid := queryID(c, "userId")
		if !valid {
			return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid userId filter", nil)
		}
		if present {
			db = db.Where("user_id = ?", userID)
		}
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		if !domain.ValidOrderStatus(status) {
			return fail(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid status filter", status)
		}
		db = db.Where("status = ?", status)
	}

	var orders []domain.Order
	if err := preloadItems(db).Order("id DESC").Find(&orders).Error; err != nil {
		return databaseError(c, "Failed to query orders", err)
	}
	return ok(c, orders)
}

// loadOrder fetches an order the caller may act on. A non-admin asking for
// another user's order gets 403.
func loadOrder(c echo.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var o domain.Order
	err := preloadItems(db).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return nil, databaseError(c, "Failed to query order", err)
	}
	if ident := identity(c); !ident.IsAdmin() && ident.UserID != o.UserID {
		return nil, fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return &o, nil
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	o, err := loadOrder(c, GetDB(c), id)
	if err != nil {
		return err
	}
	return ok(c, o)
}

// createOrder writes the order and one line per product in a single
// transaction, then emits order:created once.
func createOrder(c echo.Context) error {
	var payload orderPayload
	if err := bindAndValidate(c, &payload, "order"); err != nil {
		return err
	}

	ident := identity(c)
	userID := payload.UserID
	if userID == 0 {
		userID = ident.UserID
	}
	if !ident.IsAdmin() && userID != ident.UserID {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Cannot create orders for another user", nil)
	}
	status := domain.OrderPending
	if payload.Status != "" && ident.IsAdmin() {
		status = payload.Status
	}

	var order domain.Order
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		var userCount int64
		if err := tx.Model(&domain.User{}).Where("id = ?", userID).Count(&userCount).Error; err != nil {
			return err
		}
		if userCount == 0 {
			return &errMissingRef{code: "USER_NOT_FOUND", message: "User not found", id: userID}
		}

		items := make([]domain.OrderProduct, 0, len(payload.Products))
		for _, p := range payload.Products {
			var product domain.Product
			if err := tx.Where("id = ?", p.ProductID).First(&product).Error; errors.Is(err, gorm.ErrRecordNotFound) {
				return &errMissingRef{code: "PRODUCT_NOT_FOUND", message: fmt.Sprintf("Product %d not found", p.ProductID), id: p.ProductID}
			} else if err != nil {
				return err
			}
			items = append(items, domain.OrderProduct{ProductID: product.ID, Product: &product, Quantity: p.Quantity})
		}

		order = domain.Order{UserID: userID, Status: status, Total: domain.OrderTotal(items)}
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Omit("Product").Create(&items[i]).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
	var missing *errMissingRef
	if errors.As(err, &missing) {
		return fail(c, http.StatusNotFound, missing.code, missing.message, missing.id)
	} else if err != nil {
		return databaseError(c, "Failed to create order", err)
	}

	zap.L().Info("order created",
		zap.String("namespace", "api"),
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int("items", len(order.Items)))
	publish(c, events.OrderCreated, &order)
	return created(c, order)
}

func updateOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderUpdatePayload
	if err := bindAndValidate(c, &payload, "order"); err != nil {
		return err
	}

	o, err := loadOrder(c, GetDB(c), id)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if payload.Status != nil && *payload.Status != o.Status {
		updates["status"] = *payload.Status
	}
	if payload.UserID != nil && *payload.UserID != o.UserID {
		if !identity(c).IsAdmin() {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "Only an admin can reassign orders", nil)
		}
		var count int64
		if err := GetDB(c).Model(&domain.User{}).Where("id = ?", *payload.UserID).Count(&count).Error; err != nil {
			return databaseError(c, "Failed to query user", err)
		}
		if count == 0 {
			return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", *payload.UserID)
		}
		updates["user_id"] = *payload.UserID
	}

	if len(updates) == 0 {
		return ok(c, o)
	}
	if err := GetDB(c).Model(&domain.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return databaseError(c, "Failed to update order", err)
	}
	var updated domain.Order
	if err := preloadItems(GetDB(c)).Where("id = ?", id).First(&updated).Error; err != nil {
		return databaseError(c, "Failed to query order", err)
	}

	publish(c, events.OrderUpdated, &updated)
	return ok(c, updated)
}

func deleteOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if _, err := loadOrder(c, GetDB(c), id); err != nil {
		return err
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderProduct{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Order{}).Error
	})
	if err != nil {
		return databaseError(c, "Failed to delete order", err)
	}

	zap.L().Info("order deleted", zap.String("namespace", "api"), zap.Int64("id", id))
	publish(c, events.OrderDeleted, map[string]interface{}{"id": id})
	return ok(c, map[string]interface{}{"id": id})
}

func exportOrders(c echo.Context) error {
	var orders []domain.Order
	if err := GetDB(c).Preload("Items").Order("id ASC").Find(&orders).Error; err != nil {
		return databaseError(c, "Failed to query orders", err)
	}

	rows := make([]*orderCSV, 0, len(orders))
	for _, o := range orders {
		parts := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			parts = append(parts, fmt.Sprintf("%dx%d", it.ProductID, it.Quantity))
		}
		rows = append(rows, &orderCSV{
			ID:        o.ID,
			UserID:    o.UserID,
			Status:    o.Status,
			Total:     o.Total.StringFixed(2),
			Items:     strings.Join(parts, ";"),
			CreatedAt: o.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export orders", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

// recomputeOrderTotal stores the sum of the order's current lines.
func recomputeOrderTotal(tx *gorm.DB, orderID int64) error {
	var items []domain.OrderProduct
	if err := tx.Preload("Product").Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Order{}).Where("id = ?", orderID).
		Update("total", domain.OrderTotal(items)).Error
}
