package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderTotal(t *testing.T, env *testEnv, id int64) decimal.Decimal {
	t.Helper()
	var o domain.Order
	require.NoError(t, env.app.DB().Where("id = ?", id).First(&o).Error)
	return o.Total
}

func TestOrderProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(domain.RoleClient)
	brush := env.product("Cepillo", "10")
	spray := env.product("Spray", "4")
	o := createOrderFor(t, env, token, brush.ID, 1)

	rec := env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": o.ID, "productId": spray.ID, "quantity": 3,
	}, token)
	requireStatus(t, rec, http.StatusCreated)
	var line domain.OrderProduct
	env.decode(rec, &line)
	assert.Equal(t, 3, line.Quantity)
	require.NotNil(t, line.Product)
	assert.Equal(t, spray.ID, line.Product.ID)
	assert.True(t, decimal.NewFromInt(22).Equal(orderTotal(t, env, o.ID)))

	path := fmt.Sprintf("/api/productOrders/%d", line.ID)
	rec = env.do(http.MethodPatch, path, map[string]interface{}{"quantity": 1}, token)
	requireStatus(t, rec, http.StatusOK)
	assert.True(t, decimal.NewFromInt(14).Equal(orderTotal(t, env, o.ID)))

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/productOrders?orderId=%d", o.ID), nil, token)
	requireStatus(t, rec, http.StatusOK)
	var lines []domain.OrderProduct
	env.decode(rec, &lines)
	assert.Len(t, lines, 2)

	requireStatus(t, env.do(http.MethodDelete, path, nil, token), http.StatusOK)
	assert.True(t, decimal.NewFromInt(10).Equal(orderTotal(t, env, o.ID)))
	requireStatus(t, env.do(http.MethodGet, path, nil, token), http.StatusNotFound)

	assert.Equal(t, []string{events.OrderCreated, events.OrderUpdated, events.OrderUpdated, events.OrderUpdated},
		env.events.names())
}

func TestOrderProductRejectsDanglingReferences(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(domain.RoleClient)
	p := env.product("Toalla", "6")
	o := createOrderFor(t, env, token, p.ID, 1)

	rec := env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": 9999, "productId": p.ID, "quantity": 1,
	}, token)
	requireStatus(t, rec, http.StatusNotFound)

	rec = env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": o.ID, "productId": 9999, "quantity": 1,
	}, token)
	requireStatus(t, rec, http.StatusNotFound)

	rec = env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": o.ID, "productId": p.ID, "quantity": 0,
	}, token)
	requireStatus(t, rec, http.StatusBadRequest)

	assert.Equal(t, int64(1), env.count(&domain.OrderProduct{}))
}

func TestOrderProductOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.user(domain.RoleClient)
	_, strangerToken := env.user(domain.RoleClient)
	p := env.product("Secador", "30")
	o := createOrderFor(t, env, ownerToken, p.ID, 1)

	rec := env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": o.ID, "productId": p.ID, "quantity": 1,
	}, strangerToken)
	requireStatus(t, rec, http.StatusForbidden)

	rec = env.do(http.MethodGet, "/api/productOrders", nil, strangerToken)
	requireStatus(t, rec, http.StatusOK)
	var lines []domain.OrderProduct
	env.decode(rec, &lines)
	assert.Empty(t, lines)

	path := fmt.Sprintf("/api/productOrders/%d", o.Items[0].ID)
	requireStatus(t, env.do(http.MethodGet, path, nil, strangerToken), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodDelete, path, nil, strangerToken), http.StatusForbidden)
	requireStatus(t, env.do(http.MethodGet, "/api/productOrders/x", nil, ownerToken), http.StatusBadRequest)
}
