package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"travel-storefront/internal/client"
	"travel-storefront/internal/config"
	"travel-storefront/internal/queue"
	"travel-storefront/internal/repository"
	"travel-storefront/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStorefront mimics the remote storefront backend.
type fakeStorefront struct {
	mu           sync.Mutex
	cart         []map[string]any
	nextLine     int
	rejectAll    bool
	failDestinos map[float64]bool
}

func (f *fakeStorefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.rejectAll {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Token inválido"}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/destinos/":
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id_destino": 1, "nombre_Destino": "Bariloche", "descripcion": "Lagos", "image": "b.jpg", "precio_Destino": "100.00", "fecha_salida": "2099-01-01", "cantidad_Disponible": 5},
			{"id_destino": 2, "nombre_Destino": "Salta", "descripcion": "Cerros", "image": "s.jpg", "precio_Destino": "80.00", "fecha_salida": "2000-01-01", "cantidad_Disponible": 5},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/cart/":
		_ = json.NewEncoder(w).Encode(f.cart)
	case r.Method == http.MethodPost && r.URL.Path == "/cart/add/":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.nextLine++
		body["id_compra"] = f.nextLine
		f.cart = append(f.cart, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	case r.Method == http.MethodPost && r.URL.Path == "/checkout/":
		var body struct {
			Items []struct {
				ID float64 `json:"id_destino"`
			} `json:"items"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, item := range body.Items {
			if f.failDestinos[item.ID] {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error": {"message": "Sin cupo"}}`))
				return
			}
		}
		kept := f.cart[:0]
		for _, line := range f.cart {
			bought := false
			for _, item := range body.Items {
				if line["id_destino"] == item.ID {
					bought = true
				}
			}
			if !bought {
				kept = append(kept, line)
			}
		}
		f.cart = kept
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/metodos-pago/":
		_, _ = w.Write([]byte(`[{"id_metodoPago": 7, "nombrePago": "Tarjeta"}]`))
	case r.Method == http.MethodGet && r.URL.Path == "/purchases/":
		_, _ = w.Write([]byte(`[{"id_compra": 50, "destino": {"nombre_Destino": "Iguazú"}, "cantidad": 1, "total": "300.00", "fecha_creacion": "2026-01-01T10:00:00Z", "id_metodoPago": {"nombrePago": "Tarjeta"}}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeStorefront) addLine(destinationID, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLine++
	f.cart = append(f.cart, map[string]any{
		"id_compra":    f.nextLine,
		"id_destino":   float64(destinationID),
		"cantidad":     quantity,
		"fecha_salida": "2099-01-01",
	})
}

type testApp struct {
	srv     *Server
	backend *fakeStorefront
	session service.Session
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zap.NewNop()

	backend := &fakeStorefront{failDestinos: map[float64]bool{}}
	remote := httptest.NewServer(backend)
	t.Cleanup(remote.Close)

	db, err := client.InitDBClient(config.Ledger{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	notifier := service.NewNotifier(log)
	session := service.NewSession(log, notifier, "")
	backendClient := client.NewBackendClient(&config.Backend{BaseURL: remote.URL, Timeout: 2 * time.Second}, session)
	backendClient.OnUnauthorized(session.Expire)

	cartStore := service.NewCartStore(backendClient, notifier, log)
	ledger := service.NewLedger(repository.NewLocalStoreRepository(db), queue.NewPublisher(config.RabbitMQ{}, log), log, "dreamtravel_historial")
	session.OnLogout(func(context.Context) { cartStore.Reset() })
	session.OnLogout(func(ctx context.Context) { _ = ledger.Clear(ctx) })

	srv := NewServer(
		session,
		notifier,
		service.NewCatalogService(backendClient, log),
		cartStore,
		service.NewCheckoutService(backendClient, cartStore, ledger, notifier, log, 2),
		service.NewDashboardService(backendClient, ledger, log),
		ledger,
	)
	return &testApp{srv: srv, backend: backend, session: session}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartRequiresSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/checkout", `{"metodo_pago": "7"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogIsPublicAndFiltered(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/destinos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	destinations := decode[[]map[string]any](t, rec)
	require.Len(t, destinations, 1)
	assert.Equal(t, "Bariloche", destinations[0]["nombre_Destino"])
	assert.Equal(t, true, destinations[0]["estaVigente"])
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/session", `{"access_token": "tok"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/cart/items", `{"id_destino": 1, "cantidad": 2, "fecha_salida": "2099-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[map[string]any](t, rec)
	assert.Equal(t, "200.00", cart["total"])
	assert.Equal(t, true, cart["allSelected"])

	rec = app.do(t, http.MethodPost, "/api/checkout", `{"metodo_pago": 7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[service.CheckoutOutcome](t, rec)
	assert.Equal(t, 1, outcome.SuccessCount)
	assert.Equal(t, service.OutcomeAllSucceeded, outcome.Class)
	assert.Equal(t, service.ViewCatalog, outcome.Next)
	assert.Empty(t, outcome.Cart)

	rec = app.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]map[string]any](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, false, history[0]["esLocal"])
	assert.Equal(t, true, history[1]["esLocal"])
	assert.Equal(t, "Bariloche", history[1]["nombre_Destino"])
	assert.Equal(t, "Método 7", history[1]["metodoPago"])

	rec = app.do(t, http.MethodGet, "/api/notices", "")
	notices := decode[[]service.Notice](t, rec)
	require.NotEmpty(t, notices)
}

func TestCheckoutPartialFailure(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.session.Login("tok"))
	app.backend.addLine(1, 1)
	app.backend.addLine(2, 1)
	app.backend.failDestinos[2] = true

	rec := app.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/checkout", `{"metodo_pago": "7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode[service.CheckoutOutcome](t, rec)
	assert.Equal(t, 1, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.ErrorCount)
	assert.Equal(t, service.OutcomeSomeSucceeded, outcome.Class)
	assert.Equal(t, service.NoticeWarning, outcome.Notice.Level)
	require.Len(t, outcome.Cart, 1)
}

func TestCheckoutValidation(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.session.Login("tok"))

	rec := app.do(t, http.MethodPost, "/api/checkout", `{"metodo_pago": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "método de pago")
}

func TestUpdateQuantityEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.session.Login("tok"))
	app.backend.addLine(1, 1)

	rec := app.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPut, "/api/cart/items/1/quantity", `{"cantidad": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, false, resp["changed"])

	rec = app.do(t, http.MethodPut, fmt.Sprintf("/api/cart/items/%d/quantity", 99), `{"cantidad": 2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackendUnauthorizedLogsOut(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.session.Login("tok"))

	app.backend.mu.Lock()
	app.backend.rejectAll = true
	app.backend.mu.Unlock()

	rec := app.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[map[string]any](t, rec)
	assert.NotEmpty(t, cart["warning"])
	assert.Equal(t, "0.00", cart["total"])

	rec = app.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, false, decode[map[string]any](t, rec)["loggedIn"])
}
