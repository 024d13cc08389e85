package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-restaurant-pos/config"
	"go-restaurant-pos/logging"
	"go-restaurant-pos/middleware"
	"go-restaurant-pos/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Backend:           config.BackendMemory,
		KitchenLateAfter:  15 * time.Minute,
		ReconcileInterval: time.Hour,
		RequestTimeout:    5 * time.Second,
		Timezone:          "UTC",
		LogLevel:          "error",
		CORSOrigins:       []string{"*"},
		SeedDemo:          true,
	}
}

type api struct {
	t      *testing.T
	app    *App
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	a, err := Open(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return &api{t: t, app: a, router: a.Router()}
}

func (a *api) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (a *api) productID(name string) string {
	a.t.Helper()
	products, err := a.app.Backend.Catalog.ListProducts(context.Background(), models.ProductFilter{})
	require.NoError(a.t, err)
	for _, p := range products {
		if p.Name == name {
			return p.Product_id
		}
	}
	a.t.Fatalf("product %q not seeded", name)
	return ""
}

func amount(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "amount %v is not a string", v)
	return decimal.RequireFromString(s)
}

func TestSeedIsIdempotent(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, a.app.Backend))

	tables, err := a.app.Backend.Tables.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, demoTables)
	assert.Equal(t, "Table 01", tables[0].Name)

	products, err := a.app.Backend.Catalog.ListProducts(ctx, models.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, len(demoMenu))
	categories, err := a.app.Backend.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(demoCategories))
}

func TestHealthAndNoRoute(t *testing.T) {
	a := newAPI(t)
	w, body := a.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w, _ = a.do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestTableLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	burger := a.productID("Bacon Burger")
	soda := a.productID("Guarana Soda")

	w, order := a.do(http.MethodPost, "/tables/1/orders", map[string]any{
		"items": []map[string]any{{"product_id": burger, "quantity": 2}, {"product_id": soda, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "queued", order["status"])
	assert.True(t, amount(t, order["total_amount"]).Equal(decimal.RequireFromString("67.30")))
	orderID := order["order_id"].(string)

	w, table := a.do(http.MethodGet, "/tables/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "occupied", table["status"])
	assert.True(t, amount(t, table["total_amount"]).Equal(decimal.RequireFromString("67.30")))

	w, bill := a.do(http.MethodGet, "/tables/1/bill", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, bill["items"], 2)
	assert.Nil(t, bill["closed_at"])

	w, queue := a.do(http.MethodGet, "/kitchen/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, queue["data"], 1)

	w, advanced := a.do(http.MethodPost, "/kitchen/orders/"+orderID+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, advanced["advanced"])

	w, _ = a.do(http.MethodPost, "/tables/1/release", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, closed := a.do(http.MethodPost, "/tables/1/bill/close", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, amount(t, closed["total"]).Equal(decimal.RequireFromString("67.30")))
	assert.NotNil(t, closed["closed_at"])
	assert.Equal(t, "finalized", closed["orders"].([]any)[0].(map[string]any)["status"])

	w, _ = a.do(http.MethodPost, "/tables/1/bill/close", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, released := a.do(http.MethodPost, "/tables/1/release", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, released["released"])
	assert.Equal(t, "available", released["table"].(map[string]any)["status"])

	w, summary := a.do(http.MethodGet, "/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), summary["orders_today"])
	assert.Equal(t, float64(demoTables), summary["total_tables"])

	w, recent := a.do(http.MethodGet, "/orders/recent?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, recent["data"], 1)
	assert.Equal(t, "Table 01", recent["data"].([]any)[0].(map[string]any)["table_name"])

	w, history := a.do(http.MethodGet, "/tables/1/orders?all=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, history["data"], 1)
	w, open := a.do(http.MethodGet, "/tables/1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, open["data"])
}

func TestResubmittedOrderIsChargedOnce(t *testing.T) {
	a := newAPI(t)
	body := map[string]any{
		"submission_id": "0b6a0c9e-4a8f-4f5e-9d51-6f1a2b3c4d5e",
		"items":         []map[string]any{{"product_id": a.productID("Flan"), "quantity": 1}},
	}
	w, first := a.do(http.MethodPost, "/tables/2/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, second := a.do(http.MethodPost, "/tables/2/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first["order_id"], second["order_id"])

	table, err := a.app.Backend.Tables.GetTable(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, table.Total_amount.Equal(decimal.NewFromInt(12)))
}

func TestOrderValidation(t *testing.T) {
	a := newAPI(t)
	burger := a.productID("Bacon Burger")

	tests := []struct {
		name string
		path string
		body any
		code int
	}{
		{"no items", "/tables/1/orders", map[string]any{"items": []any{}}, http.StatusBadRequest},
		{"zero quantity", "/tables/1/orders", map[string]any{"items": []map[string]any{{"product_id": burger, "quantity": 0}}}, http.StatusBadRequest},
		{"bad submission id", "/tables/1/orders", map[string]any{"submission_id": "x", "items": []map[string]any{{"product_id": burger, "quantity": 1}}}, http.StatusBadRequest},
		{"bad table id", "/tables/abc/orders", map[string]any{"items": []map[string]any{{"product_id": burger, "quantity": 1}}}, http.StatusBadRequest},
		{"unknown table", "/tables/99/orders", map[string]any{"items": []map[string]any{{"product_id": burger, "quantity": 1}}}, http.StatusNotFound},
		{"unknown product", "/tables/1/orders", map[string]any{"items": []map[string]any{{"product_id": "nope", "quantity": 1}}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := a.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	table, err := a.app.Backend.Tables.GetTable(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)
}

func TestCancelOrderOverHTTP(t *testing.T) {
	a := newAPI(t)
	w, order := a.do(http.MethodPost, "/tables/3/orders", map[string]any{
		"items": []map[string]any{{"product_id": a.productID("French Fries"), "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := a.do(http.MethodPost, "/orders/"+order["order_id"].(string)+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["cancelled"])

	w, table := a.do(http.MethodGet, "/tables/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dirty", table["status"])

	w, _ = a.do(http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenuManagement(t *testing.T) {
	a := newAPI(t)

	w, created := a.do(http.MethodPost, "/products", map[string]any{"name": "Pastel", "price": "12,50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, amount(t, created["price"]).Equal(decimal.RequireFromString("12.50")))
	id := created["product_id"].(string)

	w, _ = a.do(http.MethodPost, "/products", map[string]any{"name": "Broken", "price": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(http.MethodPost, "/products", map[string]any{"name": "Free"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, updated := a.do(http.MethodPatch, "/products/"+id, map[string]any{"price": 13})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Pastel", updated["name"])
	assert.True(t, amount(t, updated["price"]).Equal(decimal.NewFromInt(13)))

	w, paused := a.do(http.MethodPatch, "/products/"+id+"/status", map[string]any{"status": "paused"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paused", paused["status"])

	w, active := a.do(http.MethodGet, "/products?status=active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, active["data"], len(demoMenu))

	w, all := a.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, all["data"], len(demoMenu)+1)

	w, _ = a.do(http.MethodGet, "/products?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a paused product cannot be ordered
	w, _ = a.do(http.MethodPost, "/tables/4/orders", map[string]any{
		"items": []map[string]any{{"product_id": id, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, category := a.do(http.MethodPost, "/categories", map[string]any{"name": "Snacks"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, category["category_id"])
	w, categories := a.do(http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, categories["data"], len(demoCategories)+1)
}

func TestCreateTable(t *testing.T) {
	a := newAPI(t)
	w, table := a.do(http.MethodPost, "/tables", map[string]any{"table_id": 40, "name": "Terrace"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "available", table["status"])

	w, _ = a.do(http.MethodPost, "/tables", map[string]any{"table_id": 40, "name": "Again"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(http.MethodPost, "/tables", map[string]any{"name": "No id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, pending := a.do(http.MethodGet, "/tables/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, pending["data"])

	w, reconciled := a.do(http.MethodPost, "/tables/40/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "available", reconciled["status"])
}

func TestVoiceParse(t *testing.T) {
	a := newAPI(t)
	w, body := a.do(http.MethodPost, "/voice/parse", map[string]any{
		"text":  "two bacon burgers and one milkshake for table 4",
		"items": []map[string]any{{"product_id": a.productID("Flan"), "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(4), body["table_id"])
	assert.Len(t, body["items"], 3)
	assert.True(t, amount(t, body["total"]).Equal(decimal.RequireFromString("90.30")))
	assert.Nil(t, body["errors"])

	orders, err := a.app.Backend.Orders.ListOrdersForTable(context.Background(), 4, nil)
	require.NoError(t, err)
	assert.Empty(t, orders, "parsing never records an order")

	w, _ = a.do(http.MethodPost, "/voice/parse", map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevenueDates(t *testing.T) {
	a := newAPI(t)
	w, body := a.do(http.MethodGet, "/dashboard/revenue/2026-01-01/2026-01-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 3)

	w, _ = a.do(http.MethodGet, "/dashboard/revenue/2026-01-03/2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(http.MethodGet, "/dashboard/revenue/yesterday/2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(http.MethodGet, "/dashboard/revenue/0001-01-01/9999-12-31", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReleaseAllTables(t *testing.T) {
	a := newAPI(t)
	flan := a.productID("Flan")
	for _, id := range []string{"2", "4"} {
		w, _ := a.do(http.MethodPost, "/tables/"+id+"/orders", map[string]any{
			"items": []map[string]any{{"product_id": flan, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w, _ := a.do(http.MethodPost, "/tables/2/bill/close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := a.do(http.MethodPost, "/tables/release-all", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{float64(2)}, body["released"])

	w, table := a.do(http.MethodGet, "/tables/4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "occupied", table["status"])
}

func TestWebSocketReceivesChanges(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topics=tables"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.app.Hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	w, _ := a.do(http.MethodPost, "/tables", map[string]any{"table_id": 50, "name": "Garden"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "tables.changed", msg.Event)
	assert.Equal(t, "tables", msg.Payload["topic"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return a.app.Hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsUnknownTopic(t *testing.T) {
	a := newAPI(t)
	w, body := a.do(http.MethodGet, "/ws?topics=tables,weather", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "topics", body["field"])
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig([]string{"*"})
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	strict := corsConfig([]string{"http://pos.local"})
	assert.False(t, strict.AllowAllOrigins)
	assert.Equal(t, []string{"http://pos.local"}, strict.AllowOrigins)
	assert.True(t, strict.AllowCredentials)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "redis"
	_, err := Open(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}
