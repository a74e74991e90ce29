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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finexus/catalog-console/internal/catalog"
	"github.com/finexus/catalog-console/internal/domain/product"
	"github.com/finexus/catalog-console/internal/notify"
	"github.com/finexus/catalog-console/internal/rest"
	"github.com/finexus/catalog-console/pkg/clientware"
	"github.com/finexus/catalog-console/pkg/loading"
	"github.com/finexus/catalog-console/pkg/toast"
)

// newTestConsole wires a full console against the given API server, with
// the same middleware chain the real application uses minus telemetry.
func newTestConsole(t *testing.T, srv *httptest.Server) (*console, *bytes.Buffer) {
	t.Helper()

	toasts := toast.NewService()
	tracker := loading.New()
	reporter := notify.NewReporter(toasts)
	transport := clientware.Wrap(nil,
		clientware.RequestID(),
		clientware.LogRequests(),
		clientware.TrackLoading(tracker),
		clientware.ReportFailures(reporter),
	)

	client, err := rest.NewClient(rest.Config{
		BaseURL:    srv.URL + "/api",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, transport)
	require.NoError(t, err)

	coordinator := catalog.New(client)
	var out bytes.Buffer
	return &console{
		out:         &out,
		cfg:         &Config{HealthTimeout: time.Second, Monitor: MonitorConfig{Interval: time.Minute}},
		lg:          zap.NewNop(),
		client:      client,
		coordinator: coordinator,
		resolver:    catalog.NewResolver(coordinator),
		toasts:      toasts,
		tracker:     tracker,
	}, &out
}

func catalogHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, _ *http.Request) {
		list := []product.Product{
			{ID: 1, Name: "Desk Lamp", Price: decimal.NewFromFloat(24.50), Stock: 4},
			{ID: 2, Name: "Notebook", Price: decimal.NewFromFloat(3.99), Stock: 120},
		}
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "product not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(product.Product{ID: 1, Name: "Desk Lamp", Price: decimal.NewFromFloat(24.50), Stock: 4})
	})
	mux.HandleFunc("POST /api/products", func(w http.ResponseWriter, r *http.Request) {
		var in product.CreateProduct
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(product.Product{ID: 9, Name: in.Name, Price: in.Price, Stock: in.Stock})
	})
	mux.HandleFunc("GET /api/products/test", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 2})
	})
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "API is running"})
	})
	return mux
}

func TestConsole_List(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	require.NoError(t, c.dispatch(context.Background(), []string{"list"}))

	assert.Contains(t, out.String(), "Desk Lamp")
	assert.Contains(t, out.String(), "24.50")
	assert.Contains(t, out.String(), "Notebook")
}

func TestConsole_Get(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	require.NoError(t, c.dispatch(context.Background(), []string{"get", "1"}))
	assert.Contains(t, out.String(), "Desk Lamp")
}

func TestConsole_Get_NotFoundProducesInfoToast(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	err := c.dispatch(context.Background(), []string{"get", "99"})
	require.Error(t, err)
	assert.True(t, rest.IsNotFound(err))
	assert.Contains(t, out.String(), "[info]")
}

func TestConsole_Create(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	err := c.dispatch(context.Background(), []string{
		"create", "-name", "Stapler", "-price", "7.25", "-stock", "10",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[success]")
	assert.Contains(t, out.String(), "Stapler")

	// The published list was patched locally.
	snapshot := c.coordinator.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(9), snapshot[0].ID)
}

func TestConsole_Health(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	require.NoError(t, c.dispatch(context.Background(), []string{"health"}))
	assert.Contains(t, out.String(), "API is running")
	assert.Contains(t, out.String(), "2 products")
}

func TestConsole_UnknownCommand(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, out := newTestConsole(t, srv)
	err := c.dispatch(context.Background(), []string{"frobnicate"})
	require.Error(t, err)
	assert.True(t, strings.Contains(out.String(), "usage:"))
}

func TestConsole_CommandRequired(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t))
	defer srv.Close()

	c, _ := newTestConsole(t, srv)
	require.Error(t, c.dispatch(context.Background(), nil))
}
