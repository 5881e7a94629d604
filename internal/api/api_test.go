package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

const testJWTSecret = "test-secret"

// testConfig keeps the request window open around the clock so lifecycle
// tests do not depend on when they run.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Lending.WindowOpen = "00:00"
	cfg.Lending.WindowClose = "23:59"
	cfg.Lending.Timezone = "UTC"
	return cfg
}

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router, err := NewRouter(database, testJWTSecret, testConfig())
	if err != nil {
		t.Fatalf("building router: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return server, database, token
}

// memberToken creates a regular member and returns a token for them.
func memberToken(t *testing.T, database *sql.DB, username string) (int64, string) {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	user, err := store.CreateUser(context.Background(), database, username, string(hash), model.RoleUser)
	if err != nil {
		t.Fatalf("creating member %s: %v", username, err)
	}
	token, err := auth.GenerateToken(testJWTSecret, user.ID, username, model.RoleUser)
	if err != nil {
		t.Fatalf("generating token for %s: %v", username, err)
	}
	return user.ID, token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, wantStatus int, out any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", req.Method, req.URL.Path, wantStatus, resp.StatusCode)
	}
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEquipmentAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Create equipment.
	req, _ := authRequest("POST", server.URL+"/api/equipment", token, map[string]any{
		"name":     "Camera",
		"category": "electronics",
		"quantity": 2,
	})
	var created model.Equipment
	doJSON(t, req, http.StatusCreated, &created)
	if created.Kind != model.KindPrimary {
		t.Errorf("expected default kind 'primary', got %q", created.Kind)
	}

	// List equipment.
	req, _ = authRequest("GET", server.URL+"/api/equipment", token, nil)
	var items []model.Equipment
	doJSON(t, req, http.StatusOK, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	// Restock.
	req, _ = authRequest("POST", server.URL+"/api/equipment/1/adjust", token, map[string]int{"delta": 3})
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", server.URL+"/api/equipment/1", token, nil)
	var got model.Equipment
	doJSON(t, req, http.StatusOK, &got)
	if got.Quantity != 5 {
		t.Errorf("expected quantity 5 after restock, got %d", got.Quantity)
	}
}

func TestRequestLifecycleFlow(t *testing.T) {
	server, database, adminToken := setupTestServer(t)

	_, aliceToken := memberToken(t, database, "alice")
	bobID, bobToken := memberToken(t, database, "bob")

	// Admin stocks one camera.
	req, _ := authRequest("POST", server.URL+"/api/equipment", adminToken, map[string]any{
		"name":     "Camera",
		"category": "electronics",
		"quantity": 1,
	})
	var camera model.Equipment
	doJSON(t, req, http.StatusCreated, &camera)

	// Alice requests it: admitted pending.
	req, _ = authRequest("POST", server.URL+"/api/requests", aliceToken, map[string]any{
		"equipment_id": camera.ID,
		"quantity":     1,
	})
	var aliceReq model.Responsibility
	doJSON(t, req, http.StatusCreated, &aliceReq)
	if aliceReq.Status != model.StatusPending {
		t.Fatalf("expected pending, got %q", aliceReq.Status)
	}

	// A duplicate request is refused.
	req, _ = authRequest("POST", server.URL+"/api/requests", aliceToken, map[string]any{
		"equipment_id": camera.ID,
		"quantity":     1,
	})
	doJSON(t, req, http.StatusConflict, nil)

	// Alice cannot decide her own request.
	req, _ = authRequest("PUT", server.URL+"/api/requests/1/status", aliceToken,
		map[string]string{"status": model.StatusApproved})
	doJSON(t, req, http.StatusForbidden, nil)

	// Admin approves.
	req, _ = authRequest("PUT", server.URL+"/api/requests/1/status", adminToken,
		map[string]string{"status": model.StatusApproved})
	var approved model.Responsibility
	doJSON(t, req, http.StatusOK, &approved)
	if approved.Status != model.StatusApproved {
		t.Fatalf("expected approved, got %q", approved.Status)
	}
	if approved.DueDate == nil {
		t.Error("expected a due date on approval")
	}

	// Bob requests the now-depleted camera: waitlisted.
	req, _ = authRequest("POST", server.URL+"/api/requests", bobToken, map[string]any{
		"equipment_id": camera.ID,
		"quantity":     1,
	})
	var bobReq model.Responsibility
	doJSON(t, req, http.StatusCreated, &bobReq)
	if bobReq.Status != model.StatusWaiting {
		t.Fatalf("expected waiting, got %q", bobReq.Status)
	}

	// Bob only sees his own responsibilities.
	req, _ = authRequest("GET", server.URL+"/api/requests", bobToken, nil)
	var bobList []model.Responsibility
	doJSON(t, req, http.StatusOK, &bobList)
	if len(bobList) != 1 || bobList[0].Username != "bob" {
		t.Errorf("expected only bob's responsibility, got %d entries", len(bobList))
	}

	// Bob cannot transfer alice's responsibility.
	req, _ = authRequest("POST", server.URL+"/api/requests/1/transfer", bobToken,
		map[string]int64{"target_user_id": bobID})
	doJSON(t, req, http.StatusForbidden, nil)

	// Alice hands the camera to bob.
	req, _ = authRequest("POST", server.URL+"/api/requests/1/transfer", aliceToken,
		map[string]int64{"target_user_id": bobID})
	var transferred model.Responsibility
	doJSON(t, req, http.StatusOK, &transferred)
	if transferred.Status != model.StatusApproved {
		t.Fatalf("expected bob approved after transfer, got %q", transferred.Status)
	}
	if len(transferred.TransferChain) != 1 {
		t.Fatalf("expected 1 chain link, got %d", len(transferred.TransferChain))
	}
	if transferred.TransferChain[0].FromUsername != "alice" {
		t.Errorf("expected chain from alice, got %q", transferred.TransferChain[0].FromUsername)
	}

	// Admin force-returns bob's hold; repeating it is a conflict.
	req, _ = authRequest("POST", server.URL+"/api/requests/2/force-return", adminToken, nil)
	var returned model.Responsibility
	doJSON(t, req, http.StatusOK, &returned)
	if returned.Status != model.StatusReturned {
		t.Fatalf("expected returned, got %q", returned.Status)
	}
	req, _ = authRequest("POST", server.URL+"/api/requests/2/force-return", adminToken, nil)
	doJSON(t, req, http.StatusConflict, nil)

	// The report reads the whole story.
	req, _ = authRequest("GET", server.URL+"/api/reports/chain-of-custody", adminToken, nil)
	var records []model.CustodyRecord
	doJSON(t, req, http.StatusOK, &records)
	if len(records) != 2 {
		t.Errorf("expected 2 custody records, got %d", len(records))
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/equipment")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, database, _ := setupTestServer(t)

	_, userToken := memberToken(t, database, "user1")

	// Regular user should not be able to create equipment (admin required).
	req, _ := authRequest("POST", server.URL+"/api/equipment", userToken, map[string]any{
		"name":     "Test",
		"category": "misc",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user creating equipment, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular user should not access /api/users.
	req, _ = authRequest("GET", server.URL+"/api/users", userToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Or the custody report.
	req, _ = authRequest("GET", server.URL+"/api/reports/chain-of-custody", userToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user reading reports, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	// The revoked token no longer works.
	req, _ = authRequest("GET", server.URL+"/api/equipment", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
