package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/core/sessiontransport"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/httpapi"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/realtime"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store/memstore"
	"github.com/dmitrymomot/servicehub/middleware"
)

const (
	webhookSecret = "whsec-test"
	adminEmail    = "admin@servicehub.test"
	adminPassword = "admin-password"
)

type client struct {
	t      *testing.T
	server *httptest.Server
}

func newClient(t *testing.T, readiness ...func(context.Context) error) *client {
	t.Helper()

	st := memstore.New()
	sessions := session.NewManager[identity.SessionData](session.NewMemoryStore[identity.SessionData]())
	resolver := identity.NewResolver(sessions, nil)
	accounts := account.NewService(st, account.WithBcryptCost(bcrypt.MinCost))
	products := catalog.NewService(st, nil)
	carts := cart.NewService(st, products, nil)
	orders := order.NewService(st, st, nil)
	transport := sessiontransport.NewHeader()
	hub := realtime.NewHub(nil)

	_, err := accounts.EnsureAdmin(context.Background(), adminEmail, adminPassword, "Admin")
	require.NoError(t, err)

	h := httpapi.New(httpapi.Config{
		Message:       "Service Hub API",
		Version:       "9.9.9",
		WebhookSecret: webhookSecret,
	}, httpapi.Deps{
		Accounts:  accounts,
		Catalog:   products,
		Carts:     carts,
		Orders:    orders,
		Stats:     stats.NewService(st),
		Resolver:  resolver,
		Transport: transport,
		Realtime:  realtime.NewHandler(hub, resolver, transport, realtime.Config{AllowAnonymous: true}, nil),
		Hub:       hub,
		Readiness: readiness,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &client{t: t, server: srv}
}

// do sends body as JSON and decodes the response into out when it is not nil.
func (c *client) do(method, path, token string, body any, out any, headers ...string) *http.Response {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, r)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type authBody struct {
	User  account.Account `json:"user"`
	Token string          `json:"token"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type cartBody struct {
	Items []struct {
		ProductID uuid.UUID       `json:"product_id"`
		Quantity  int             `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unit_price"`
		Subtotal  decimal.Decimal `json:"subtotal"`
	} `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Version   int64           `json:"version"`
}

func (c *client) registerCustomer(email string) string {
	c.t.Helper()
	var auth authBody
	resp := c.do(http.MethodPost, "/api/user-auth/register", "", map[string]string{
		"email": email, "password": "customer-password", "name": "Customer",
	}, &auth)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(c.t, auth.Token)
	assert.Equal(c.t, auth.Token, resp.Header.Get(sessiontransport.TokenHeader))
	return auth.Token
}

func (c *client) loginAdmin() string {
	c.t.Helper()
	var auth authBody
	resp := c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": adminEmail, "password": adminPassword,
	}, &auth)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	assert.Equal(c.t, identity.KindAdmin, auth.User.Kind)
	return auth.Token
}

func (c *client) createProduct(adminToken, name, price string) catalog.Product {
	c.t.Helper()
	var p catalog.Product
	resp := c.do(http.MethodPost, "/api/products", adminToken, map[string]any{"name": name, "price": price}, &p)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	return p
}

func TestRootAndHealth(t *testing.T) {
	t.Parallel()

	c := newClient(t)

	var root map[string]string
	resp := c.do(http.MethodGet, "/", "", nil, &root)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"message": "Service Hub API", "version": "9.9.9", "status": "running"}, root)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	resp = c.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = c.do(http.MethodGet, "/health/ready", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var notFound errorBody
	resp = c.do(http.MethodGet, "/nope", "", nil, &notFound)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReadinessFailure(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(context.Context) error { return errors.New("mongo unreachable") })
	resp := c.do(http.MethodGet, "/health/ready", "", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCustomerAuth(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	token := c.registerCustomer("grace@example.com")

	var me struct {
		User account.Account `json:"user"`
	}
	resp := c.do(http.MethodGet, "/api/user-auth/me", token, nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "grace@example.com", me.User.Email)

	var e errorBody
	resp = c.do(http.MethodPost, "/api/user-auth/register", "", map[string]string{
		"email": "GRACE@example.com", "password": "customer-password", "name": "Again",
	}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email_taken", e.Code)

	resp = c.do(http.MethodPost, "/api/user-auth/login", "", map[string]string{
		"email": "grace@example.com", "password": "wrong-password",
	}, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", e.Code)

	resp = c.do(http.MethodGet, "/api/auth/me", token, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "customers are not admins")

	resp = c.do(http.MethodPost, "/api/user-auth/logout", token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = c.do(http.MethodGet, "/api/user-auth/me", token, nil, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthenticated", e.Code)

	resp = c.do(http.MethodPost, "/api/user-auth/register", "", map[string]string{
		"email": "bad", "password": "customer-password", "name": "X",
	}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation_failed", e.Code)
}

func TestAdminCannotUseCustomerLogin(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	var e errorBody
	resp := c.do(http.MethodPost, "/api/user-auth/login", "", map[string]string{
		"email": adminEmail, "password": adminPassword,
	}, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProducts(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	admin := c.loginAdmin()
	customer := c.registerCustomer("henry@example.com")

	var e errorBody
	resp := c.do(http.MethodPost, "/api/products", customer, map[string]any{"name": "X", "price": "1"}, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = c.do(http.MethodPost, "/api/products", "", map[string]any{"name": "X", "price": "1"}, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = c.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "X", "price": "0"}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	p := c.createProduct(admin, "Electrician visit", "35.00")
	hidden := c.createProduct(admin, "Secret service", "1.00")
	resp = c.do(http.MethodPut, "/api/products/"+hidden.ID.String(), admin,
		map[string]any{"name": "Secret service", "price": "1.00", "active": false}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []catalog.Product
	resp = c.do(http.MethodGet, "/api/products", "", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	c.do(http.MethodGet, "/api/products?all=true", customer, nil, &list)
	assert.Len(t, list, 1, "only admins see inactive products")
	c.do(http.MethodGet, "/api/products?all=true", admin, nil, &list)
	assert.Len(t, list, 2)

	resp = c.do(http.MethodGet, "/api/products/"+hidden.ID.String(), customer, nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = c.do(http.MethodGet, "/api/products/"+hidden.ID.String(), admin, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = c.do(http.MethodGet, "/api/products/not-a-uuid", "", nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodDelete, "/api/products/"+p.ID.String(), admin, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = c.do(http.MethodDelete, "/api/products/"+p.ID.String(), admin, nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckoutAndPaymentFlow(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	admin := c.loginAdmin()
	customer := c.registerCustomer("ivy@example.com")
	p := c.createProduct(admin, "Deep cleaning", "40.25")

	var e errorBody
	resp := c.do(http.MethodGet, "/api/cart", "", nil, &e)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var cb cartBody
	resp = c.do(http.MethodPost, "/api/cart/items", customer, map[string]any{"product_id": p.ID}, &cb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, cb.Items, 1)
	assert.Equal(t, 1, cb.Items[0].Quantity, "quantity defaults to one")

	resp = c.do(http.MethodPut, "/api/cart/items/"+p.ID.String(), customer, map[string]any{"quantity": 2}, &cb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decimal.RequireFromString("80.50").Equal(cb.Total))
	assert.Equal(t, 2, cb.ItemCount)

	resp = c.do(http.MethodPost, "/api/cart/items", customer, map[string]any{"product_id": p.ID, "quantity": 5000}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var o order.Order
	resp = c.do(http.MethodPost, "/api/payment/checkout", customer, nil, &o)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, order.StatePending, o.State)
	assert.True(t, decimal.RequireFromString("80.50").Equal(o.Total))

	c.do(http.MethodGet, "/api/cart", customer, nil, &cb)
	assert.Empty(t, cb.Items)

	resp = c.do(http.MethodPost, "/api/payment/checkout", customer, nil, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "empty_cart", e.Code)

	for _, outcome := range []string{"authorized", "captured"} {
		resp = c.do(http.MethodPost, "/api/payment/orders/"+o.ID.String()+"/attempts", customer,
			map[string]any{"outcome": outcome}, &e)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, outcome)
		assert.Equal(t, "outcome_not_allowed", e.Code, outcome)
	}
	var pending order.Order
	resp = c.do(http.MethodGet, "/api/payment/orders/"+o.ID.String(), customer, nil, &pending)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, order.StatePending, pending.State, "customers cannot mark orders paid")

	webhook := map[string]any{"order_id": o.ID, "outcome": "captured", "reference": "pay_1"}
	resp = c.do(http.MethodPost, "/api/payment/webhook", "", webhook, &e, httpapi.WebhookSecretHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var res order.Result
	resp = c.do(http.MethodPost, "/api/payment/webhook", "", webhook, &res, httpapi.WebhookSecretHeader, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, res.Changed)
	assert.Equal(t, order.StateCaptured, res.Order.State)

	resp = c.do(http.MethodPost, "/api/payment/webhook", "", webhook, &res, httpapi.WebhookSecretHeader, webhookSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode, "duplicate webhook is accepted")
	assert.False(t, res.Changed)

	resp = c.do(http.MethodPost, "/api/payment/orders/"+o.ID.String()+"/attempts", customer,
		map[string]any{"outcome": "declined"}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", e.Code)
	assert.Equal(t, "captured", e.Details["from"])
	assert.Equal(t, "failed", e.Details["to"])

	var orders []order.Order
	resp = c.do(http.MethodGet, "/api/payment/orders", customer, nil, &orders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, orders, 1)

	other := c.registerCustomer("jack@example.com")
	resp = c.do(http.MethodGet, "/api/payment/orders/"+o.ID.String(), other, nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "other customers' orders are hidden")

	resp = c.do(http.MethodPost, "/api/admin/orders/"+o.ID.String()+"/refund", admin, nil, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, order.StateRefunded, res.Order.State)

	var summary stats.Summary
	resp = c.do(http.MethodGet, "/api/stats/summary", admin, nil, &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), summary.ByState[order.StateRefunded].Count)
	assert.True(t, decimal.RequireFromString("80.50").Equal(summary.Total.Amount))

	resp = c.do(http.MethodGet, "/api/stats/summary", customer, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = c.do(http.MethodGet, "/api/stats/summary?from=2025-03-05&to=2025-03-01", admin, nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminOrders(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	admin := c.loginAdmin()
	customer := c.registerCustomer("kate@example.com")
	p := c.createProduct(admin, "Tailoring", "15")

	for range 2 {
		c.do(http.MethodPost, "/api/cart/items", customer, map[string]any{"product_id": p.ID}, nil)
		resp := c.do(http.MethodPost, "/api/payment/checkout", customer, nil, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var orders []order.Order
	resp := c.do(http.MethodGet, "/api/admin/orders?state=pending&limit=1", admin, nil, &orders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, orders, 1)

	var e errorBody
	resp = c.do(http.MethodGet, "/api/admin/orders?state=shipped", admin, nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = c.do(http.MethodGet, "/api/admin/orders", customer, nil, &e)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var rt realtime.Stats
	resp = c.do(http.MethodGet, "/api/admin/realtime", admin, nil, &rt)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, rt.Connections)
}
