package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrelhq/carrel/internal/category"
	"github.com/carrelhq/carrel/internal/inventory"
	"github.com/carrelhq/carrel/internal/lending"
	"github.com/carrelhq/carrel/internal/settings"
	"github.com/carrelhq/carrel/internal/store"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	settingsService := settings.NewService(st)
	return NewRouter(RouterConfig{
		Store:      st,
		Inventory:  inventory.NewService(st),
		Categories: category.NewService(st),
		Lending:    lending.NewService(st, settingsService),
		Settings:   settingsService,
		Version:    "test",
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return parsed
}

func TestCreateBook_RoundTrip(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/books", gin.H{
		"isbn":   "9780134685991",
		"title":  "Effective Java",
		"author": "Joshua Bloch",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	parsed := decodeResponse(t, w)
	assert.Equal(t, true, parsed["success"])
	data := parsed["data"].(map[string]any)
	assert.Equal(t, "Effective Java", data["title"])
	assert.Equal(t, "available", data["status"])

	w = doJSON(t, router, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decodeResponse(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), listing["total"])
}

func TestCreateBook_DuplicateISBNConflict(t *testing.T) {
	router := setupTestRouter(t)

	body := gin.H{"isbn": "111", "title": "A", "author": "B"}
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/books", body).Code)

	w := doJSON(t, router, http.MethodPost, "/api/books", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateBook_ValidationError(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/books", gin.H{"title": "No ISBN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBook_NotFound(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/books/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/books/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchCreateBooks_PartialSuccess(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/books/batch", gin.H{
		"books": []gin.H{
			{"isbn": "111", "title": "A", "author": "X"},
			{"isbn": "111", "title": "Duplicate", "author": "Y"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeResponse(t, w)["data"].(map[string]any)
	assert.Len(t, data["created"], 1)
	assert.Len(t, data["errors"], 1)
}

func TestSearchBooks_RequiresQuery(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/books/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/books/search?q=java", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRequestIDEchoed(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}
