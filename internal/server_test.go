package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itam-api/internal/auth"
	"itam-api/internal/config"
	"itam-api/internal/inventory"
	"itam-api/internal/models"
	"itam-api/internal/store/imagefs"
	"itam-api/internal/store/memstore"
)

type testEnv struct {
	srv *Server
	svc *inventory.Service
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "supersecretkeyforhandlertestingonly!!",
		JWTIssuer:      "itam-api",
		JWTAudience:    "itam-api",
		JWTExpiry:      time.Hour,
		EnableMetrics:  true,
		AllowedOrigins: []string{"http://localhost:4200"},
		RateLimit:      1000,
		LoginRateLimit: 1000,
		HistoryLimit:   inventory.DefaultHistoryLimit,
		ImportMaxBytes: 1 << 20,
	}
}

func newTestEnv(t *testing.T, db Pinger) *testEnv {
	t.Helper()
	images, err := imagefs.New(t.TempDir())
	require.NoError(t, err)

	metrics := NewMetrics()
	svc := inventory.NewService(memstore.New(), inventory.Options{Recorder: metrics, Images: images})
	srv, err := NewServer(testConfig(), Deps{Service: svc, Metrics: metrics, DB: db, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return &testEnv{srv: srv, svc: svc}
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := e.srv.JWTManager.GenerateToken(1, role+"@example.com", []string{role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewServer_RejectsBadJWTConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "short"
	svc := inventory.NewService(memstore.New(), inventory.Options{})
	_, err := NewServer(cfg, Deps{Service: svc})
	assert.ErrorContains(t, err, "JWT configuration validation failed")

	_, err = NewServer(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	w := newTestEnv(t, nil).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = newTestEnv(t, failingPinger{}).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/items", "/ledgers", "/users", "/classify?type=CPU"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "MISSING_AUTH_HEADER", decode[auth.ErrorResponse](t, w).Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	email := "admin@example.com"
	admin := &models.User{Name: "Admin", Email: &email, PasswordHash: &hash, Role: auth.RoleAdmin}
	require.NoError(t, env.svc.CreateUser(ctx, admin))

	w := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "ADMIN@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	resp := decode[models.LoginResponse](t, w)
	assert.Equal(t, admin.ID, resp.User.ID)

	claims, err := env.srv.JWTManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.RoleAdmin}, claims.Roles)

	w = env.do(t, http.MethodGet, "/auth/profile", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin", decode[models.User](t, w).Name)

	w = env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email, Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[auth.ErrorResponse](t, w).Code)

	w = env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: email})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, auth.RoleAdmin)

	// Create a laptop for a new employee.
	w := env.do(t, http.MethodPost, "/items", admin, map[string]any{
		"type": "Laptop", "barcode": "LAP-001", "brand": "Dell", "ram": "16GB", "ssd": "512GB",
		"owner": map[string]string{"name": "Alice", "company": "AcmeCo", "department": "IT"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	laptop := decode[models.Item](t, w)
	assert.Equal(t, models.KindComputer, laptop.Kind)
	require.NotNil(t, laptop.OwnerID)
	alice := *laptop.OwnerID

	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/ledger", alice), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := decode[models.LedgerView](t, w)
	assert.Equal(t, "ACID-0001", ledger.AccountabilityCode)
	assert.Equal(t, "TRID-0001", ledger.TrackingCode)
	assert.Equal(t, models.IDSet{laptop.ID}, ledger.ComputerIDs)
	require.NotNil(t, ledger.Owner)
	assert.Equal(t, "Alice", ledger.Owner.Name)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d/components", laptop.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	comps := decode[struct{ Data []models.Component }](t, w).Data
	require.Len(t, comps, 2)
	assert.Equal(t, models.StatusReleased, comps[0].Status)

	// Hand it to Bob.
	w = env.do(t, http.MethodPost, "/users", admin, map[string]any{"name": "Bob", "company": "AcmeCo", "department": "HR"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bob := decode[models.User](t, w)
	assert.Equal(t, auth.RoleViewer, bob.Role)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/owner", laptop.ID), admin, models.AssignOwnerRequest{OwnerID: bob.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[models.Item](t, w)
	assert.True(t, moved.HasOwner(bob.ID))
	assert.Equal(t, []string{"Alice"}, moved.History)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/ledger", alice), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/ledger", bob.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ACID-0002", decode[models.LedgerView](t, w).AccountabilityCode)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d?history_limit=1", laptop.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.ItemView](t, w)
	assert.Equal(t, 1, view.HistoryTotal)
	require.NotNil(t, view.Owner)
	assert.Equal(t, "Bob", view.Owner.Name)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d/logs", laptop.ID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[struct{ Data []models.ActionLog }](t, w).Data
	require.NotEmpty(t, logs)
	assert.Equal(t, "admin@example.com", logs[len(logs)-1].PerformedBy)

	// Retire it.
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/items/%d", laptop.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/items/%d", laptop.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d/ledger", bob.ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClaimVacantItem(t *testing.T) {
	env := newTestEnv(t, nil)
	custodian := env.token(t, auth.RoleCustodian)

	w := env.do(t, http.MethodPost, "/items", custodian, map[string]any{"type": "Printer", "barcode": "PR-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	printer := decode[models.Item](t, w)
	assert.True(t, printer.Vacant())

	w = env.do(t, http.MethodPost, "/users", env.token(t, auth.RoleAdmin), map[string]any{"name": "Cleo"})
	require.Equal(t, http.StatusCreated, w.Code)
	cleo := decode[models.User](t, w)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/claim", printer.ID), custodian, models.AssignOwnerRequest{OwnerID: cleo.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, fmt.Sprintf("/items/%d/claim", printer.ID), custodian, models.AssignOwnerRequest{OwnerID: cleo.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t, nil)
	viewer := env.token(t, auth.RoleViewer)
	custodian := env.token(t, auth.RoleCustodian)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"viewer cannot create items", http.MethodPost, "/items", viewer},
		{"viewer cannot update items", http.MethodPut, "/items/1", viewer},
		{"viewer cannot assign", http.MethodPost, "/items/1/owner", viewer},
		{"viewer cannot import", http.MethodPost, "/imports/excel", viewer},
		{"custodian cannot delete", http.MethodDelete, "/items/1", custodian},
		{"custodian cannot create users", http.MethodPost, "/users", custodian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.token, map[string]any{})
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "INSUFFICIENT_PERMISSIONS", decode[auth.ErrorResponse](t, w).Code)
		})
	}

	w := env.do(t, http.MethodGet, "/items", viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, auth.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing barcode", http.MethodPost, "/items", map[string]any{"type": "Monitor"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown owner", http.MethodPost, "/items", map[string]any{"type": "Monitor", "barcode": "M-1", "owner_id": 77}, http.StatusNotFound, "NOT_FOUND"},
		{"both owner forms", http.MethodPost, "/items", map[string]any{"type": "Monitor", "barcode": "M-1", "owner_id": 1, "owner": map[string]string{"name": "A"}}, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", http.MethodPost, "/items", map[string]any{"type": "Monitor", "barcode": "M-1", "colour": "red"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing item", http.MethodGet, "/items/999", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad id", http.MethodGet, "/items/abc", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad history limit", http.MethodGet, "/items/1?history_limit=0", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad kind filter", http.MethodGet, "/items?kind=vehicle", nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad owner filter", http.MethodGet, "/items?owner_id=-2", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing ledger", http.MethodGet, "/ledgers/5", nil, http.StatusNotFound, "NOT_FOUND"},
		{"missing user", http.MethodGet, "/users/5", nil, http.StatusNotFound, "NOT_FOUND"},
		{"classify without type", http.MethodGet, "/classify", nil, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, admin, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[auth.ErrorResponse](t, w).Code)
		})
	}
}

func TestWriteServiceError_HidesInternals(t *testing.T) {
	var logged bytes.Buffer
	s := &Server{log: zerolog.New(&logged)}
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()

	s.writeServiceError(w, req, fmt.Errorf("%w: pq: relation \"items\" does not exist", inventory.ErrPersistence))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, auth.ErrorResponse{Error: "internal server error", Code: "INTERNAL"}, decode[auth.ErrorResponse](t, w))
	assert.Contains(t, logged.String(), "relation")
}

func TestListEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, auth.RoleAdmin)
	for i, typ := range []string{"Monitor", "CPU", "Monitor"} {
		w := env.do(t, http.MethodPost, "/items", admin, map[string]any{
			"type": typ, "barcode": fmt.Sprintf("B-%d", i),
			"owner": map[string]string{"name": "Dana", "company": "AcmeCo", "department": "Ops"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	type itemPage struct {
		Data []models.Item
		Page pageInfo
	}
	w := env.do(t, http.MethodGet, "/items?kind=asset&limit=1&sort=-barcode", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[itemPage](t, w)
	assert.Equal(t, pageInfo{Limit: 1, Offset: 0, Total: 2}, page.Page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "B-2", page.Data[0].Barcode)

	w = env.do(t, http.MethodGet, "/items?vacant=true", admin, nil)
	assert.Equal(t, 0, decode[itemPage](t, w).Page.Total)

	w = env.do(t, http.MethodGet, "/ledgers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledgers := decode[struct {
		Data []models.Ledger
		Page pageInfo
	}](t, w)
	require.Len(t, ledgers.Data, 1)
	assert.Len(t, ledgers.Data[0].AssetIDs, 2)
	assert.Len(t, ledgers.Data[0].ComputerIDs, 1)

	w = env.do(t, http.MethodGet, "/users?q=dana", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[struct {
		Data []models.User
		Page pageInfo
	}](t, w)
	require.Len(t, users.Data, 1)
	assert.Equal(t, "Dana", users.Data[0].Name)

	w = env.do(t, http.MethodGet, "/classify?type=cpu", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "computer", decode[map[string]string](t, w)["kind"])
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, auth.RoleAdmin)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown role", map[string]any{"name": "Eve", "role": "root"}, http.StatusBadRequest},
		{"email without password", map[string]any{"name": "Eve", "email": "eve@example.com"}, http.StatusBadRequest},
		{"password without email", map[string]any{"name": "Eve", "password": "longenough"}, http.StatusBadRequest},
		{"short password", map[string]any{"name": "Eve", "email": "eve@example.com", "password": "short"}, http.StatusBadRequest},
		{"blank name", map[string]any{"name": " "}, http.StatusBadRequest},
		{"login user", map[string]any{"name": "Eve", "email": "eve@example.com", "password": "longenough", "role": "Custodian"}, http.StatusCreated},
		{"duplicate email", map[string]any{"name": "Eve 2", "email": "EVE@example.com", "password": "longenough"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/users", admin, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestItemImage(t *testing.T) {
	env := newTestEnv(t, nil)
	custodian := env.token(t, auth.RoleCustodian)

	w := env.do(t, http.MethodPost, "/items", custodian, map[string]any{"type": "Monitor", "barcode": "MON-7"})
	require.Equal(t, http.StatusCreated, w.Code)
	item := decode[models.Item](t, w)

	upload := func(filename string, content []byte) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/items/%d/image", item.ID), body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+custodian)
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		return rec
	}

	w = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d/image", item.ID), custodian, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = upload("photo.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	w = upload("photo.PNG", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Item](t, w)
	require.NotNil(t, updated.ImageRef)
	assert.True(t, strings.HasSuffix(*updated.ImageRef, ".png"))

	w = env.do(t, http.MethodGet, fmt.Sprintf("/items/%d/image", item.ID), custodian, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, auth.RoleAdmin)
	w := env.do(t, http.MethodPost, "/items", admin, map[string]any{
		"type": "Monitor", "barcode": "M-9",
		"owner": map[string]string{"name": "Finn"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `ledger_operations_total{op="create"} 1`)
	assert.Contains(t, body, `path="/items"`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/items", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
}
