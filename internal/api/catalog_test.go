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

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)
	_, clientToken := env.user(domain.RoleClient)

	payload := map[string]interface{}{"name": "Acondicionador", "price": 8.75, "stock": 4}
	requireStatus(t, env.do(http.MethodPost, "/api/products", payload, ""), http.StatusUnauthorized)
	requireStatus(t, env.do(http.MethodPost, "/api/products", payload, clientToken), http.StatusForbidden)

	rec := env.do(http.MethodPost, "/api/products", payload, adminToken)
	requireStatus(t, rec, http.StatusCreated)
	var p domain.Product
	env.decode(rec, &p)
	assert.True(t, decimal.RequireFromString("8.75").Equal(p.Price))
	assert.Contains(t, rec.Body.String(), `"price":8.75`)

	rec = env.do(http.MethodGet, "/api/products?q=acondi", nil, "")
	requireStatus(t, rec, http.StatusOK)
	var list []domain.Product
	env.decode(rec, &list)
	require.Len(t, list, 1)

	path := fmt.Sprintf("/api/products/%d", p.ID)
	rec = env.do(http.MethodPatch, path, map[string]interface{}{"stock": 9}, adminToken)
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &p)
	assert.Equal(t, 9, p.Stock)
	assert.Equal(t, "Acondicionador", p.Name)

	requireStatus(t, env.do(http.MethodPut, path, map[string]interface{}{"price": -1}, adminToken), http.StatusBadRequest)
	requireStatus(t, env.do(http.MethodGet, "/api/products/9999", nil, ""), http.StatusNotFound)
	requireStatus(t, env.do(http.MethodGet, "/api/products/abc", nil, ""), http.StatusBadRequest)

	requireStatus(t, env.do(http.MethodDelete, path, nil, adminToken), http.StatusOK)
	requireStatus(t, env.do(http.MethodGet, path, nil, ""), http.StatusNotFound)
	requireStatus(t, env.do(http.MethodDelete, path, nil, adminToken), http.StatusNotFound)
}

func TestProductRequiresPrice(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)

	rec := env.do(http.MethodPost, "/api/products", map[string]interface{}{"name": "Sin precio"}, adminToken)
	requireStatus(t, rec, http.StatusBadRequest)
	rec = env.do(http.MethodPost, "/api/products", map[string]interface{}{"price": 3}, adminToken)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Zero(t, env.count(&domain.Product{}))
}

func TestDeleteProductRecomputesOrders(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(domain.RoleClient)
	_, adminToken := env.user(domain.RoleAdmin)
	keep := env.product("Keep", "5")
	drop := env.product("Drop", "100")

	o := createOrderFor(t, env, token, keep.ID, 2)
	rec := env.do(http.MethodPost, "/api/productOrders", map[string]interface{}{
		"orderId": o.ID, "productId": drop.ID, "quantity": 1,
	}, token)
	requireStatus(t, rec, http.StatusCreated)
	assert.True(t, decimal.NewFromInt(110).Equal(orderTotal(t, env, o.ID)))

	requireStatus(t, env.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", drop.ID), nil, adminToken), http.StatusOK)
	assert.Equal(t, int64(1), env.count(&domain.OrderProduct{}))
	assert.True(t, decimal.NewFromInt(10).Equal(orderTotal(t, env, o.ID)))

	all := env.events.all()
	require.Len(t, all, 3)
	assert.Equal(t, events.OrderUpdated, all[2].Name)
	updated, ok := all[2].Data.(*domain.Order)
	require.True(t, ok)
	assert.Equal(t, o.ID, updated.ID)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, keep.ID, updated.Items[0].ProductID)
}

func TestDeleteUnorderedProductPublishesNothing(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)
	p := env.product("Suelto", "1")

	requireStatus(t, env.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", p.ID), nil, adminToken), http.StatusOK)
	assert.Empty(t, env.events.names())
}

func TestServiceCRUD(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)

	requireStatus(t, env.do(http.MethodPost, "/api/servicios",
		map[string]interface{}{"name": "Corte", "duration": 0}, adminToken), http.StatusBadRequest)

	rec := env.do(http.MethodPost, "/api/servicios",
		map[string]interface{}{"name": "Corte", "price": 15, "duration": 30}, adminToken)
	requireStatus(t, rec, http.StatusCreated)
	var s domain.Service
	env.decode(rec, &s)
	assert.Equal(t, 30, s.Duration)

	rec = env.do(http.MethodGet, "/api/servicios", nil, "")
	requireStatus(t, rec, http.StatusOK)
	var list []domain.Service
	env.decode(rec, &list)
	assert.Len(t, list, 1)

	path := fmt.Sprintf("/api/servicios/%d", s.ID)
	rec = env.do(http.MethodPut, path, map[string]interface{}{"duration": 45}, adminToken)
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &s)
	assert.Equal(t, 45, s.Duration)
	assert.Equal(t, "Corte", s.Name)

	requireStatus(t, env.do(http.MethodGet, "/api/servicios/9999", nil, ""), http.StatusNotFound)
	requireStatus(t, env.do(http.MethodDelete, path, nil, adminToken), http.StatusOK)
	requireStatus(t, env.do(http.MethodDelete, path, nil, adminToken), http.StatusNotFound)

	assert.Equal(t, []string{events.ServiceCreated, events.ServiceUpdated, events.ServiceDeleted}, env.events.names())
}

func TestAvailabilityCRUD(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)
	svc := domain.Service{Name: "Tinte", Duration: 60}
	require.NoError(t, env.app.DB().Create(&svc).Error)

	rec := env.do(http.MethodPost, "/api/disponibilidades", map[string]interface{}{
		"serviceId": svc.ID, "date": "2026-11-02", "startTime": "9:30", "endTime": "10:30",
	}, adminToken)
	requireStatus(t, rec, http.StatusCreated)
	var a domain.Availability
	env.decode(rec, &a)
	assert.Equal(t, "2026-11-02", a.Date)
	assert.Equal(t, "09:30", a.StartTime)
	assert.True(t, a.Available)

	rec = env.do(http.MethodPost, "/api/disponibilidades", map[string]interface{}{
		"date": "2026-11-03", "startTime": "12:00", "endTime": "13:00", "available": false,
	}, adminToken)
	requireStatus(t, rec, http.StatusCreated)
	var closed domain.Availability
	env.decode(rec, &closed)
	assert.False(t, closed.Available)

	var list []domain.Availability
	rec = env.do(http.MethodGet, "/api/disponibilidades?available=true", nil, "")
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	rec = env.do(http.MethodGet, "/api/disponibilidades?date=2026-11-03", nil, "")
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, closed.ID, list[0].ID)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/disponibilidades?serviceId=%d", svc.ID), nil, "")
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &list)
	assert.Len(t, list, 1)

	requireStatus(t, env.do(http.MethodGet, "/api/disponibilidades?available=maybe", nil, ""), http.StatusBadRequest)

	path := fmt.Sprintf("/api/disponibilidades/%d", a.ID)
	requireStatus(t, env.do(http.MethodPatch, path, map[string]interface{}{"endTime": "09:00"}, adminToken), http.StatusBadRequest)
	rec = env.do(http.MethodPatch, path, map[string]interface{}{"available": false}, adminToken)
	requireStatus(t, rec, http.StatusOK)
	env.decode(rec, &a)
	assert.False(t, a.Available)

	requireStatus(t, env.do(http.MethodDelete, path, nil, adminToken), http.StatusOK)
	requireStatus(t, env.do(http.MethodGet, path, nil, ""), http.StatusNotFound)
}

func TestAvailabilityValidation(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)

	cases := []map[string]interface{}{
		{"date": "2026-11-02", "startTime": "11:00", "endTime": "10:00"},
		{"date": "2026-11-02", "startTime": "25:00", "endTime": "26:00"},
		{"date": "someday", "startTime": "10:00", "endTime": "11:00"},
		{"startTime": "10:00", "endTime": "11:00"},
	}
	for i, payload := range cases {
		rec := env.do(http.MethodPost, "/api/disponibilidades", payload, adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
	}

	rec := env.do(http.MethodPost, "/api/disponibilidades", map[string]interface{}{
		"serviceId": 9999, "date": "2026-11-02", "startTime": "10:00", "endTime": "11:00",
	}, adminToken)
	requireStatus(t, rec, http.StatusNotFound)
	assert.Zero(t, env.count(&domain.Availability{}))
}

func TestDeleteServiceKeepsAvailability(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(domain.RoleAdmin)
	svc := domain.Service{Name: "Peinado", Duration: 20}
	require.NoError(t, env.app.DB().Create(&svc).Error)
	slot := domain.Availability{ServiceID: &svc.ID, Date: "2026-12-01", StartTime: "10:00", EndTime: "10:20", Available: true}
	require.NoError(t, env.app.DB().Create(&slot).Error)

	requireStatus(t, env.do(http.MethodDelete, fmt.Sprintf("/api/servicios/%d", svc.ID), nil, adminToken), http.StatusOK)

	var got domain.Availability
	require.NoError(t, env.app.DB().Where("id = ?", slot.ID).First(&got).Error)
	assert.Nil(t, got.ServiceID)
}
