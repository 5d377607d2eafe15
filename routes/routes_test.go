package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"servicesync-server/config"
	"servicesync-server/database"
	"servicesync-server/models"
	"servicesync-server/services"
)

type testEnv struct {
	router  *gin.Engine
	users   *services.UserService
	catalog *services.CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
	}

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", URL: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	users := services.NewUserService(db)
	tokens, err := services.NewTokenAuthority(cfg.JWT, users)
	if err != nil {
		t.Fatalf("token authority: %v", err)
	}
	lifecycle := services.NewLifecycleService(db)
	catalog := services.NewCatalogService(db)

	router := NewRouter(Dependencies{
		Config:    cfg,
		Tokens:    tokens,
		Users:     users,
		Requests:  services.NewRequestService(db, lifecycle),
		Lifecycle: lifecycle,
		Catalog:   catalog,
		Feedback:  services.NewFeedbackService(db),
	})
	return &testEnv{router: router, users: users, catalog: catalog}
}

func (e *testEnv) register(t *testing.T, role models.UserRole, email string, serviceID *uint) {
	t.Helper()
	_, err := e.users.Register(context.Background(), services.RegisterInput{
		Name:      email,
		Email:     email,
		Password:  "secret123",
		Role:      role,
		ServiceID: serviceID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)

	var decoded map[string]interface{}
	if resp.Body.Len() > 0 {
		if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, resp.Body.String(), err)
		}
	}
	return resp, decoded
}

func (e *testEnv) login(t *testing.T, email string) (string, *http.Cookie) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"email": email, "password": "secret123"})
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: status %d %v", email, resp.Code, body)
	}
	token, _ := body["accessToken"].(string)
	if token == "" {
		t.Fatalf("login %s: no access token in %v", email, body)
	}
	var refresh *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == refreshCookie {
			refresh = c
		}
	}
	if refresh == nil || !refresh.HttpOnly {
		t.Fatalf("login %s: expected an http-only refresh cookie", email)
	}
	return token, refresh
}

func expectStatus(t *testing.T, step string, resp *httptest.ResponseRecorder, body map[string]interface{}, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("%s: status = %d, want %d (%v)", step, resp.Code, want, body)
	}
	if want >= 400 && body["success"] != false {
		t.Fatalf("%s: error body should carry success=false, got %v", step, body)
	}
}

func field(body map[string]interface{}, key, name string) interface{} {
	obj, _ := body[key].(map[string]interface{})
	return obj[name]
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	plumbing, err := env.catalog.CreateService(context.Background(), services.ServiceInput{ServiceName: "Plumbing"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	env.register(t, models.RoleCustomer, "customer@example.com", nil)
	env.register(t, models.RoleStoreOwner, "store@example.com", &plumbing.ID)
	env.register(t, models.RoleStoreOwner, "rival@example.com", &plumbing.ID)

	customer, _ := env.login(t, "customer@example.com")
	store, _ := env.login(t, "store@example.com")
	rival, _ := env.login(t, "rival@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/v1/create-request", customer, gin.H{
		"fullName":       "Dana Customer",
		"address":        "1 Main Street",
		"problemDetails": "no hot water",
		"serviceID":      plumbing.ID,
		"status":         "Resolved",
	})
	expectStatus(t, "create", resp, body, http.StatusCreated)
	if field(body, "request", "status") != string(models.RequestStatusOpen) {
		t.Fatalf("new request status = %v", field(body, "request", "status"))
	}
	id := uint(field(body, "request", "id").(float64))
	path := func(route string) string { return fmt.Sprintf("/api/v1/%s/%d", route, id) }

	resp, body = env.do(t, http.MethodPost, "/api/v1/create-request", store, gin.H{"fullName": "x", "address": "y"})
	expectStatus(t, "store creates request", resp, body, http.StatusForbidden)

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-open-requests", store, nil)
	expectStatus(t, "open requests", resp, body, http.StatusOK)
	if reqs, _ := body["requests"].([]interface{}); len(reqs) != 1 {
		t.Fatalf("open requests = %v", body["requests"])
	}

	resp, body = env.do(t, http.MethodPatch, path("accept-request"), customer, nil)
	expectStatus(t, "customer accepts", resp, body, http.StatusForbidden)

	resp, body = env.do(t, http.MethodPatch, path("accept-request"), store, nil)
	expectStatus(t, "accept", resp, body, http.StatusOK)
	if field(body, "request", "status") != string(models.RequestStatusInProgress) {
		t.Fatalf("accepted status = %v", field(body, "request", "status"))
	}
	if accepted, _ := field(body, "user", "acceptedServices").([]interface{}); len(accepted) != 1 {
		t.Fatalf("accepted list = %v", field(body, "user", "acceptedServices"))
	}

	resp, body = env.do(t, http.MethodPatch, path("accept-request"), rival, nil)
	expectStatus(t, "rival accepts", resp, body, http.StatusConflict)

	resp, body = env.do(t, http.MethodPut, path("update-request"), customer, gin.H{"status": "Resolved"})
	expectStatus(t, "status via update", resp, body, http.StatusConflict)

	resp, body = env.do(t, http.MethodPatch, path("complete-request"), rival, nil)
	expectStatus(t, "rival completes", resp, body, http.StatusForbidden)

	resp, body = env.do(t, http.MethodPatch, path("complete-request"), store, nil)
	expectStatus(t, "complete", resp, body, http.StatusOK)
	if field(body, "request", "status") != string(models.RequestStatusResolved) {
		t.Fatalf("completed status = %v", field(body, "request", "status"))
	}

	resp, body = env.do(t, http.MethodPatch, path("complete-request"), store, nil)
	expectStatus(t, "complete twice", resp, body, http.StatusConflict)

	resp, body = env.do(t, http.MethodPatch, path("attach-feedback-to-request"), customer, gin.H{
		"feedbackDescription": "hot water is back",
		"feedbackRating":      4.5,
	})
	expectStatus(t, "fractional rating", resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodPatch, path("attach-feedback-to-request"), customer, gin.H{
		"feedbackDescription": "hot water is back",
		"feedbackRating":      5,
	})
	expectStatus(t, "feedback", resp, body, http.StatusCreated)
	if field(body, "feedback", "feedbackRating") != float64(5) {
		t.Fatalf("feedback = %v", body["feedback"])
	}

	resp, body = env.do(t, http.MethodPatch, path("attach-feedback-to-request"), customer, gin.H{
		"feedbackDescription": "again",
		"feedbackRating":      1,
	})
	expectStatus(t, "second feedback", resp, body, http.StatusConflict)

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-completed-requests", store, nil)
	expectStatus(t, "completed", resp, body, http.StatusOK)
	if reqs, _ := body["requests"].([]interface{}); len(reqs) != 1 {
		t.Fatalf("completed = %v", body["requests"])
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-accepted-requests", store, nil)
	expectStatus(t, "accepted", resp, body, http.StatusOK)
	if reqs, _ := body["requests"].([]interface{}); len(reqs) != 0 {
		t.Fatalf("accepted = %v", body["requests"])
	}
}

func TestOwnListingsIgnoreClientScope(t *testing.T) {
	env := newTestEnv(t)
	plumbing, err := env.catalog.CreateService(context.Background(), services.ServiceInput{ServiceName: "Plumbing"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	env.register(t, models.RoleCustomer, "alice@example.com", nil)
	env.register(t, models.RoleCustomer, "bob@example.com", nil)
	env.register(t, models.RoleStoreOwner, "store@example.com", &plumbing.ID)
	env.register(t, models.RoleStoreOwner, "rival@example.com", &plumbing.ID)

	alice, _ := env.login(t, "alice@example.com")
	bob, _ := env.login(t, "bob@example.com")
	store, _ := env.login(t, "store@example.com")
	rival, _ := env.login(t, "rival@example.com")

	create := func(token, name string) (uint, uint) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/create-request", token, gin.H{
			"fullName":  name,
			"address":   "1 Main Street",
			"serviceID": plumbing.ID,
		})
		expectStatus(t, "create "+name, resp, body, http.StatusCreated)
		return uint(field(body, "request", "id").(float64)), uint(field(body, "request", "requestorID").(float64))
	}
	aliceReq, _ := create(alice, "Alice")
	bobReq, bobID := create(bob, "Bob")

	resp, body := env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/accept-request/%d", aliceReq), store, nil)
	expectStatus(t, "store accepts", resp, body, http.StatusOK)
	resp, body = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/accept-request/%d", bobReq), rival, nil)
	expectStatus(t, "rival accepts", resp, body, http.StatusOK)
	rivalID := uint(field(body, "user", "id").(float64))

	onlyRequest := func(step string, body map[string]interface{}, want uint) {
		t.Helper()
		reqs, _ := body["requests"].([]interface{})
		if len(reqs) != 1 {
			t.Fatalf("%s: requests = %v", step, body["requests"])
		}
		if got := uint(reqs[0].(map[string]interface{})["id"].(float64)); got != want {
			t.Fatalf("%s: request id = %d, want %d", step, got, want)
		}
	}

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/get-users-request?userID=%d&requestorID=%d", bobID, bobID), alice,
		gin.H{"userID": bobID, "requestorID": bobID})
	expectStatus(t, "my requests", resp, body, http.StatusOK)
	onlyRequest("my requests", body, aliceReq)

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/get-accepted-requests?userID=%d&storeID=%d", rivalID, rivalID), store,
		gin.H{"userID": rivalID, "storeID": rivalID})
	expectStatus(t, "accepted", resp, body, http.StatusOK)
	onlyRequest("accepted", body, aliceReq)

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/get-completed-requests?storeID=%d", rivalID), store, nil)
	expectStatus(t, "completed", resp, body, http.StatusOK)
	if reqs, _ := body["requests"].([]interface{}); len(reqs) != 0 {
		t.Fatalf("completed = %v", body["requests"])
	}
}

func TestAuthenticationRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, models.RoleCustomer, "customer@example.com", nil)

	resp, body := env.do(t, http.MethodGet, "/api/v1/get-users-request", "", nil)
	expectStatus(t, "no token", resp, body, http.StatusUnauthorized)

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-users-request", "forged", nil)
	expectStatus(t, "forged token", resp, body, http.StatusUnauthorized)

	resp, body = env.do(t, http.MethodPost, "/api/v1/login", "", gin.H{"email": "customer@example.com", "password": "wrong"})
	expectStatus(t, "bad login", resp, body, http.StatusBadRequest)

	access, refresh := env.login(t, "customer@example.com")

	resp, body = env.do(t, http.MethodGet, "/api/v1/me", access, nil)
	expectStatus(t, "me", resp, body, http.StatusOK)
	if field(body, "user", "email") != "customer@example.com" {
		t.Fatalf("me = %v", body["user"])
	}
	if _, leaked := body["user"].(map[string]interface{})["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/refresh-token", "", nil, refresh)
	expectStatus(t, "refresh", resp, body, http.StatusOK)
	next, _ := body["accessToken"].(string)
	if next == "" {
		t.Fatalf("refresh returned no token: %v", body)
	}
	resp, body = env.do(t, http.MethodGet, "/api/v1/me", next, nil)
	expectStatus(t, "me with refreshed token", resp, body, http.StatusOK)

	resp, body = env.do(t, http.MethodGet, "/api/v1/refresh-token", "", nil)
	expectStatus(t, "refresh without cookie", resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodGet, "/api/v1/refresh-token", "", nil, &http.Cookie{Name: refreshCookie, Value: access})
	expectStatus(t, "access token as refresh", resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodGet, "/api/v1/logout", access, nil)
	expectStatus(t, "logout", resp, body, http.StatusOK)
	for _, c := range resp.Result().Cookies() {
		if (c.Name == accessCookie || c.Name == refreshCookie) && c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared: %+v", c.Name, c)
		}
	}
}

func TestRegisterNonUserIsAlwaysCustomer(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/register-non-user", "", gin.H{
		"name":     "Eve",
		"email":    "eve@example.com",
		"password": "secret123",
		"role":     "super_admin",
	})
	expectStatus(t, "register", resp, body, http.StatusCreated)
	if field(body, "user", "role") != string(models.RoleCustomer) {
		t.Fatalf("role = %v", field(body, "user", "role"))
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/register-non-user", "", gin.H{
		"name":     "Eve",
		"email":    "eve@example.com",
		"password": "secret123",
	})
	expectStatus(t, "duplicate", resp, body, http.StatusConflict)

	customer, _ := env.login(t, "eve@example.com")
	resp, body = env.do(t, http.MethodGet, "/api/v1/get-all-customers", customer, nil)
	expectStatus(t, "customer lists users", resp, body, http.StatusForbidden)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, models.RoleSuperAdmin, "admin@example.com", nil)
	env.register(t, models.RoleCustomer, "customer@example.com", nil)
	admin, _ := env.login(t, "admin@example.com")
	customer, _ := env.login(t, "customer@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/v1/add-service", customer, gin.H{"serviceName": "Painting"})
	expectStatus(t, "customer adds service", resp, body, http.StatusForbidden)

	resp, body = env.do(t, http.MethodPost, "/api/v1/add-job", admin, gin.H{"jobName": "Wall painting"})
	expectStatus(t, "add job", resp, body, http.StatusCreated)
	jobID := field(body, "job", "id")

	resp, body = env.do(t, http.MethodPost, "/api/v1/add-service", admin, gin.H{"serviceName": "Painting", "jobID": []interface{}{jobID}})
	expectStatus(t, "add service", resp, body, http.StatusCreated)

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-all-services", customer, nil)
	expectStatus(t, "list services", resp, body, http.StatusOK)
	svcs, _ := body["services"].([]interface{})
	if len(svcs) != 1 {
		t.Fatalf("services = %v", body["services"])
	}
	if jobs, _ := svcs[0].(map[string]interface{})["jobs"].([]interface{}); len(jobs) != 1 {
		t.Fatalf("service jobs = %v", svcs[0])
	}

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-single-service/999", customer, nil)
	expectStatus(t, "missing service", resp, body, http.StatusNotFound)

	resp, body = env.do(t, http.MethodGet, "/api/v1/get-single-service/abc", customer, nil)
	expectStatus(t, "bad id", resp, body, http.StatusBadRequest)
}

func TestMediaWithoutDownloader(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/v1/media/65f0c2a1b2c3d4e5f6a7b8c9", "", nil)
	expectStatus(t, "media", resp, body, http.StatusNotFound)
}
