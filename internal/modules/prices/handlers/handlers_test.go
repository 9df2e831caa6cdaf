package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, "history"))
	t.Cleanup(func() { db.Close() })
	return db
}

func setupRouter(t *testing.T, dir string) (*chi.Mux, *prices.Repository) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	repo := prices.NewRepository(setupTestDB(t), logger)
	handler := NewHandler(repo, prices.NewImporter(repo, nil, logger), dir, logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, repo
}

func writeCSV(t *testing.T, dir, name string, closes ...float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Close\n")
	for i, c := range closes {
		fmt.Fprintf(&b, "2024-01-%02d,%g\n", i+1, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0644))
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportThenQuery(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA_2y_1d.csv", 1, 2, 3)
	writeCSV(t, dir, "BBB_2y_1d.csv", 4, 5)
	router, _ := setupRouter(t, dir)

	w := do(router, http.MethodPost, "/prices/import", "")
	require.Equal(t, http.StatusOK, w.Code)
	var imported struct {
		Data prices.ImportSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	assert.Equal(t, 5, imported.Data.Rows)

	w = do(router, http.MethodGet, "/prices/symbols", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data struct {
			Symbols []prices.SymbolSummary `json:"symbols"`
			Count   int                    `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Data.Count)
	assert.Equal(t, "AAA", listed.Data.Symbols[0].Symbol)

	w = do(router, http.MethodGet, "/prices/aaa?period=max", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Data struct {
			Symbol string              `json:"symbol"`
			Prices []prices.DailyPrice `json:"prices"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "AAA", got.Data.Symbol)
	assert.Len(t, got.Data.Prices, 3)
}

func TestHandleGetPrices_Errors(t *testing.T) {
	router, repo := setupRouter(t, "")
	_, err := repo.UpsertPrices(context.Background(), "AAA", []prices.DailyPrice{{Close: 1}})
	require.NoError(t, err)

	w := do(router, http.MethodGet, "/prices/ZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/prices/AAA?period=forever", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleImport_Errors(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := do(router, http.MethodPost, "/prices/import", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "no directory configured")

	w = do(router, http.MethodPost, "/prices/import", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/prices/import", `{"dir":"`+t.TempDir()+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
