package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/config"
	"github.com/bossbudget/usuarios-api/internal/cache"
	"github.com/bossbudget/usuarios-api/internal/infrastructure/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	manager := database.NewManager(database.Options{
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	}, logger)
	if err := manager.AwaitReady(context.Background()); err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	cfg := &config.Config{Env: "test", CORSAllowedOrigins: "*"}
	return buildEngine(cfg, logger, manager, cache.NewStatsCache(nil, time.Minute))
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return w, body
}

func TestUnknownRouteReturns404WithPath(t *testing.T) {
	r := newTestEngine(t)
	w, body := get(t, r, "/nope")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body["status"] != "error" || body["message"] != "Ruta no encontrada: /nope" {
		t.Fatalf("envelope = %v", body)
	}
}

func TestHealthRouteReportsEngine(t *testing.T) {
	r := newTestEngine(t)
	w, body := get(t, r, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["message"] != "API funcionando correctamente" {
		t.Fatalf("message = %v", body["message"])
	}
	db, ok := body["database"].(map[string]any)
	if !ok {
		t.Fatalf("database block missing: %v", body)
	}
	if db["status"] != "healthy" || db["engine"] != "sqlite" || db["connected"] != true {
		t.Fatalf("database = %v", db)
	}
}

func TestRootRouteWelcome(t *testing.T) {
	r := newTestEngine(t)
	w, body := get(t, r, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["message"] != "Bienvenido a la API de Gestión de Usuarios" {
		t.Fatalf("message = %v", body["message"])
	}
}
