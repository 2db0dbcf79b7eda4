//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"gorm.io/gorm"

	"lab-catalog-go/internal/app"
	"lab-catalog-go/internal/config"
	"lab-catalog-go/internal/db"
	"lab-catalog-go/pkg/logger"
)

const (
	examPrivate = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa1"
	examPublic  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaa2"
	memberUser  = "cccccccc-cccc-cccc-cccc-ccccccccccc1"
)

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	t.Setenv("DB_DSN", dsn)
	t.Setenv("PUBLIC_PRICES_ENABLED", "true")
	t.Setenv("TARIFF_CACHE_TTL", "0")

	quiet := logger.New(io.Discard, slog.LevelError, "json")

	dbConn, err := db.NewPostgres(config.DBConfig{DSN: dsn}, quiet)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}

	application, err := app.New(quiet)
	if err != nil {
		t.Fatalf("app init: %v", err)
	}

	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}
	if err := seedExams(dbConn); err != nil {
		t.Fatalf("seed exams: %v", err)
	}

	server := httptest.NewServer(application.HTTPServer().Handler)
	return &testEnv{server: server, db: dbConn}
}

func (e *testEnv) Close() {
	e.server.Close()
	sqlDB, err := e.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func cleanDB(dbConn *gorm.DB) error {
	ctx := context.Background()
	if err := dbConn.WithContext(ctx).Exec(
		`TRUNCATE TABLE price_entries, memberships, "references", tariffs, exams RESTART IDENTITY CASCADE`,
	).Error; err != nil {
		return err
	}
	// The migration seeds the public reference once; restore it after the
	// truncate so resolution keeps its fallback row.
	return dbConn.WithContext(ctx).Exec(
		`INSERT INTO "references" (id, name, active) VALUES (gen_random_uuid(), 'Público', TRUE)`,
	).Error
}

func seedExams(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		`INSERT INTO exams (id, name, category, is_public_visible) VALUES
			(?, 'Complete Blood Count', 'hematology', FALSE),
			(?, 'Basic Urinalysis', 'urinalysis', TRUE)`,
		examPrivate, examPublic,
	).Error
}

func requestJSON(t *testing.T, client *http.Client, method, url, role, userID string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, respBody
}

type tariffResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

type referenceResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DefaultTariffID *string `json:"default_tariff_id"`
	Active          bool    `json:"active"`
}

type examItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    *string `json:"price"`
	Tariff   *string `json:"tariff"`
}

type examPrice struct {
	ExamID    string  `json:"exam_id"`
	Available bool    `json:"available"`
	Price     *string `json:"price"`
	Tariff    *string `json:"tariff"`
}

type tariffInUse struct {
	Error struct {
		Code       string `json:"code"`
		References []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"references"`
		PriceCount int64 `json:"price_count"`
	} `json:"error"`
}

func TestCatalogPricingFlow(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := env.server.Client()
	base := env.server.URL + "/api"

	// Admin configures a sale tariff with a price for the private exam.
	resp, body := requestJSON(t, client, http.MethodPost, base+"/admin/tariffs", "admin", "admin-1", map[string]interface{}{
		"name": "Clinic A", "kind": "sale", "taxable": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tariff: status %d body %s", resp.StatusCode, body)
	}
	var tariff tariffResponse
	if err := json.Unmarshal(body, &tariff); err != nil {
		t.Fatalf("decode tariff: %v", err)
	}

	resp, body = requestJSON(t, client, http.MethodPut, base+"/admin/tariffs/"+tariff.ID+"/prices/"+examPrivate, "admin", "admin-1", map[string]interface{}{
		"price": "45.50",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set price: status %d body %s", resp.StatusCode, body)
	}

	// A client group defaults to that tariff and gets a member.
	resp, body = requestJSON(t, client, http.MethodPost, base+"/admin/references", "admin", "admin-1", map[string]interface{}{
		"name": "Clinic A Group", "default_tariff_id": tariff.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reference: status %d body %s", resp.StatusCode, body)
	}
	var reference referenceResponse
	if err := json.Unmarshal(body, &reference); err != nil {
		t.Fatalf("decode reference: %v", err)
	}

	resp, body = requestJSON(t, client, http.MethodPost, base+"/admin/references/"+reference.ID+"/members", "admin", "admin-1", map[string]interface{}{
		"user_id": memberUser,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("assign member: status %d body %s", resp.StatusCode, body)
	}

	// The member sees both exams, the private one priced under Clinic A.
	resp, body = requestJSON(t, client, http.MethodGet, base+"/catalog/exams", "member", memberUser, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("member catalog: status %d body %s", resp.StatusCode, body)
	}
	var memberCatalog []examItem
	if err := json.Unmarshal(body, &memberCatalog); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(memberCatalog) != 2 {
		t.Fatalf("expected 2 visible exams for member, got %d (%s)", len(memberCatalog), body)
	}
	found := false
	for _, item := range memberCatalog {
		if item.ID == examPrivate {
			found = true
			if item.Price == nil || *item.Price != "45.5" && *item.Price != "45.50" {
				t.Fatalf("expected private exam priced 45.50, got %+v", item.Price)
			}
			if item.Tariff == nil || *item.Tariff != "Clinic A" {
				t.Fatalf("expected tariff name Clinic A, got %+v", item.Tariff)
			}
		}
	}
	if !found {
		t.Fatalf("private exam missing from member catalog: %s", body)
	}

	// Anonymous visitors get only the public exam and no price for the
	// private one.
	resp, body = requestJSON(t, client, http.MethodGet, base+"/catalog/exams", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous catalog: status %d body %s", resp.StatusCode, body)
	}
	var anonCatalog []examItem
	if err := json.Unmarshal(body, &anonCatalog); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(anonCatalog) != 1 || anonCatalog[0].ID != examPublic {
		t.Fatalf("expected only the public exam for anonymous, got %s", body)
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/catalog/exams/"+examPrivate+"/price", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous price: status %d body %s", resp.StatusCode, body)
	}
	var anonPrice examPrice
	if err := json.Unmarshal(body, &anonPrice); err != nil {
		t.Fatalf("decode price: %v", err)
	}
	if anonPrice.Available || anonPrice.Price != nil {
		t.Fatalf("expected no anonymous price without a public tariff, got %s", body)
	}

	// Deleting the tariff is blocked and names the blocking group.
	resp, body = requestJSON(t, client, http.MethodDelete, base+"/admin/tariffs/"+tariff.ID, "admin", "admin-1", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete tariff: status %d body %s", resp.StatusCode, body)
	}
	var blocked tariffInUse
	if err := json.Unmarshal(body, &blocked); err != nil {
		t.Fatalf("decode conflict: %v", err)
	}
	if blocked.Error.Code != "tariff_in_use" || len(blocked.Error.References) != 1 || blocked.Error.References[0].Name != "Clinic A Group" {
		t.Fatalf("expected blocking reference reported, got %s", body)
	}
	if blocked.Error.PriceCount != 1 {
		t.Fatalf("expected price count 1, got %d", blocked.Error.PriceCount)
	}

	// Disabling the tariff blinds the member to the private exam.
	resp, body = requestJSON(t, client, http.MethodPatch, base+"/admin/tariffs/"+tariff.ID+"/enabled", "admin", "admin-1", map[string]interface{}{
		"enabled": false,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("disable tariff: status %d body %s", resp.StatusCode, body)
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/catalog/exams", "member", memberUser, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("member catalog after disable: status %d body %s", resp.StatusCode, body)
	}
	var afterDisable []examItem
	if err := json.Unmarshal(body, &afterDisable); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(afterDisable) != 1 || afterDisable[0].ID != examPublic {
		t.Fatalf("expected disabled tariff to hide the private exam, got %s", body)
	}
}

func TestAdminSurfaceForbidden(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := env.server.Client()
	base := env.server.URL + "/api"

	resp, body := requestJSON(t, client, http.MethodGet, base+"/admin/tariffs", "member", memberUser, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member on admin surface, got %d (%s)", resp.StatusCode, body)
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/admin/tariffs", "", "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous on admin surface, got %d (%s)", resp.StatusCode, body)
	}
}
