package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/infrastructure/config"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.HTTP.Addr = ":0"
	cfg.HTTP.LoginRateLimit = 100
	cfg.HTTP.LoginRateBurst = 100
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.TokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTTL = 24 * time.Hour
	cfg.Session.Timeout = 30 * time.Minute
	cfg.Session.WarningLead = 30 * time.Second
	cfg.Session.PollInterval = time.Minute
	cfg.Session.LogoutGrace = time.Minute
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(testConfig(), nil, nil)
	t.Cleanup(s.Sessions().Shutdown)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// login 回傳 access token 與 session ID。
func login(t *testing.T, s *Server, email, password string) (string, string) {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	token, _ := body["access_token"].(string)
	sessionID, _ := body["session_id"].(string)
	if token == "" || sessionID == "" {
		t.Fatalf("login response missing token or session: %v", body)
	}
	return token, sessionID
}

func csrfToken(t *testing.T, s *Server, sessionID string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodGet, "/api/auth/csrf", nil, func(r *http.Request) {
		r.Header.Set(sessionHeader, sessionID)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("csrf status = %d body=%s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["csrf_token"].(string)
	if token == "" {
		t.Fatal("empty csrf token")
	}
	return token
}

func authed(token, sessionID, csrf string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		if sessionID != "" {
			r.Header.Set(sessionHeader, sessionID)
		}
		if csrf != "" {
			r.Header.Set(csrfHeader, csrf)
		}
	}
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/ping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := decodeBody(t, w)["message"]; msg != "pong" {
		t.Fatalf("message = %v", msg)
	}
}

func TestHealth_MemoryBackend(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if db := decodeBody(t, w)["db"]; db != "using_memory" {
		t.Fatalf("db = %v", db)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "customer@example.com",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if code := decodeBody(t, w)["error_code"]; code != errCodeInvalidCredentials {
		t.Fatalf("error_code = %v", code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.LoginRateLimit = 0.001
	cfg.HTTP.LoginRateBurst = 2
	s := NewServer(cfg, nil, nil)
	t.Cleanup(s.Sessions().Shutdown)

	body := map[string]string{"email": "customer@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		if w := doJSON(t, s, http.MethodPost, "/api/auth/login", body); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, w.Code)
		}
	}
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"name":     "New User",
		"password": "longenough",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body=%s", w.Code, w.Body.String())
	}

	// 重複註冊衝突。
	w = doJSON(t, s, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"name":     "Again",
		"password": "longenough",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", w.Code)
	}

	login(t, s, "new@example.com", "longenough")
}

func TestLogin_SetsRefreshCookie(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "customer@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("refresh cookie not set")
	}
}

func TestProductSearch_Public(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/products?q=go&in_stock=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	products, _ := body["products"].([]interface{})
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
}

func TestProductDetail_NotFound(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/products/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCategoryList(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	categories, _ := decodeBody(t, w)["categories"].([]interface{})
	if len(categories) != 3 {
		t.Fatalf("categories = %d, want 3", len(categories))
	}
}

func TestCart_RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/cart", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t)
	token, sessionID := login(t, s, "customer@example.com", "password123")
	csrf := csrfToken(t, s, sessionID)

	// 未帶 CSRF token 的寫入被拒。
	w := doJSON(t, s, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "p-6", "quantity": 2},
		authed(token, "", ""))
	if w.Code != http.StatusForbidden {
		t.Fatalf("no-csrf status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "p-6", "quantity": 2},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d body=%s", w.Code, w.Body.String())
	}
	cart, _ := decodeBody(t, w)["cart"].(map[string]interface{})
	if total := cart["total"].(float64); total != 258 {
		t.Fatalf("total = %v, want 258", total)
	}

	// 無庫存商品回 409。
	w = doJSON(t, s, http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "p-9", "quantity": 1},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusConflict {
		t.Fatalf("out-of-stock status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, "/api/cart/items/p-6",
		map[string]interface{}{"quantity": 1},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/cart", nil, authed(token, sessionID, csrf))
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/cart", nil, authed(token, "", ""))
	cart, _ = decodeBody(t, w)["cart"].(map[string]interface{})
	if items, _ := cart["items"].([]interface{}); len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}

func TestReviewSubmitAndList(t *testing.T) {
	s := newTestServer(t)
	token, sessionID := login(t, s, "customer@example.com", "password123")
	csrf := csrfToken(t, s, sessionID)

	w := doJSON(t, s, http.MethodPost, "/api/products/p-8/reviews",
		map[string]interface{}{"rating": 5, "comment": "great read", "user_name": "Customer"},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body=%s", w.Code, w.Body.String())
	}

	// 同一使用者重複評論。
	w = doJSON(t, s, http.MethodPost, "/api/products/p-8/reviews",
		map[string]interface{}{"rating": 4, "comment": "again"},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/products/p-8/reviews", nil)
	reviews, _ := decodeBody(t, w)["reviews"].([]interface{})
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}

	// 評分回寫到商品。
	w = doJSON(t, s, http.MethodGet, "/api/products/p-8", nil)
	product, _ := decodeBody(t, w)["product"].(map[string]interface{})
	if rating := product["rating"].(float64); rating != 5 {
		t.Fatalf("rating = %v, want 5", rating)
	}
}

func TestAdmin_ForbiddenForCustomer(t *testing.T) {
	s := newTestServer(t)
	token, sessionID := login(t, s, "customer@example.com", "password123")
	csrf := csrfToken(t, s, sessionID)

	w := doJSON(t, s, http.MethodPost, "/api/admin/products",
		map[string]interface{}{"name": "X", "category_id": "c-3", "price": 1.0},
		authed(token, sessionID, csrf))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdmin_ProductAndCategoryCRUD(t *testing.T) {
	s := newTestServer(t)
	token, sessionID := login(t, s, "admin@example.com", "password123")

	w := doJSON(t, s, http.MethodPost, "/api/admin/products",
		map[string]interface{}{"name": "USB Hub", "category_id": "c-3", "price": 19.5, "stock": 30},
		authed(token, sessionID, ""))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	product, _ := decodeBody(t, w)["product"].(map[string]interface{})
	id, _ := product["id"].(string)
	if id == "" {
		t.Fatal("missing product id")
	}

	w = doJSON(t, s, http.MethodPut, "/api/admin/products/"+id,
		map[string]interface{}{"name": "USB Hub v2", "category_id": "c-3", "price": 21.0, "stock": 28},
		authed(token, sessionID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodDelete, "/api/admin/products/"+id, nil, authed(token, sessionID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	// 分類含商品時不可刪。
	w = doJSON(t, s, http.MethodDelete, "/api/admin/categories/c-3", nil, authed(token, sessionID, ""))
	if w.Code != http.StatusConflict {
		t.Fatalf("category delete status = %d", w.Code)
	}
}

func TestAdmin_Dashboard(t *testing.T) {
	s := newTestServer(t)
	token, sessionID := login(t, s, "admin@example.com", "password123")

	w := doJSON(t, s, http.MethodGet, "/api/admin/dashboard", nil, authed(token, sessionID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	overview, _ := decodeBody(t, w)["overview"].(map[string]interface{})
	if total := overview["total_products"].(float64); total != 5 {
		t.Fatalf("total_products = %v, want 5", total)
	}

	w = doJSON(t, s, http.MethodGet, "/api/admin/dashboard/sessions", nil, authed(token, sessionID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("sessions status = %d", w.Code)
	}
	sessions, _ := decodeBody(t, w)["sessions"].(map[string]interface{})
	if active := sessions["active"].(float64); active < 1 {
		t.Fatalf("active = %v, want >= 1", active)
	}
}

func TestSessionState(t *testing.T) {
	s := newTestServer(t)
	_, sessionID := login(t, s, "customer@example.com", "password123")

	w := doJSON(t, s, http.MethodGet, "/api/session/state", nil, func(r *http.Request) {
		r.Header.Set(sessionHeader, sessionID)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	session, _ := decodeBody(t, w)["session"].(map[string]interface{})
	if state := session["state"]; state != "active" {
		t.Fatalf("state = %v, want active", state)
	}
	if session["show_warning"] != false {
		t.Fatal("show_warning should be false right after login")
	}
}

func TestSessionState_Unknown(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/session/state", nil, func(r *http.Request) {
		r.Header.Set(sessionHeader, "nope")
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if code := decodeBody(t, w)["error_code"]; code != errCodeSessionUnknown {
		t.Fatalf("error_code = %v", code)
	}
}

func TestSessionActivityAndRefresh(t *testing.T) {
	s := newTestServer(t)
	_, sessionID := login(t, s, "customer@example.com", "password123")
	withSession := func(r *http.Request) { r.Header.Set(sessionHeader, sessionID) }

	w := doJSON(t, s, http.MethodPost, "/api/session/activity",
		map[string]interface{}{"from_overlay": false}, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("activity status = %d body=%s", w.Code, w.Body.String())
	}

	// 來自預警視窗的互動也回 200，但不會重置活動時間。
	w = doJSON(t, s, http.MethodPost, "/api/session/activity",
		map[string]interface{}{"from_overlay": true}, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("overlay activity status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/session/refresh", nil, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", w.Code, w.Body.String())
	}
	session, _ := decodeBody(t, w)["session"].(map[string]interface{})
	if state := session["state"]; state != "active" {
		t.Fatalf("state = %v, want active", state)
	}
}

func TestSessionLogout_Idempotent(t *testing.T) {
	s := newTestServer(t)
	_, sessionID := login(t, s, "customer@example.com", "password123")
	withSession := func(r *http.Request) { r.Header.Set(sessionHeader, sessionID) }

	for i := 0; i < 2; i++ {
		w := doJSON(t, s, http.MethodPost, "/api/session/logout", nil, withSession)
		if w.Code != http.StatusOK {
			t.Fatalf("logout %d status = %d", i, w.Code)
		}
	}

	// 卸除後狀態查詢回 404。
	w := doJSON(t, s, http.MethodGet, "/api/session/state", nil, withSession)
	if w.Code != http.StatusNotFound {
		t.Fatalf("state after logout status = %d", w.Code)
	}
}

func TestCSRFToken_StablePerSession(t *testing.T) {
	s := newTestServer(t)
	_, sessionID := login(t, s, "customer@example.com", "password123")

	first := csrfToken(t, s, sessionID)
	second := csrfToken(t, s, sessionID)
	if first != second {
		t.Fatal("csrf token should be stable within ttl")
	}

	w := doJSON(t, s, http.MethodGet, "/api/auth/csrf", nil, func(r *http.Request) {
		r.Header.Set(sessionHeader, "nope")
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", w.Code)
	}
}

func TestTokenRefresh_CookieFlow(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "customer@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var refresh *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			refresh = c
		}
	}
	if refresh == nil {
		t.Fatal("missing refresh cookie")
	}

	w = doJSON(t, s, http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(refresh)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", w.Code, w.Body.String())
	}
	if tok, _ := decodeBody(t, w)["access_token"].(string); tok == "" {
		t.Fatal("missing rotated access token")
	}

	// 沒帶 cookie 時拒絕。
	w = doJSON(t, s, http.MethodPost, "/api/auth/refresh", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no-cookie status = %d", w.Code)
	}
}

func TestSessionWS_PushesInitialStatus(t *testing.T) {
	s := newTestServer(t)
	_, sessionID := login(t, s, "customer@example.com", "password123")

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/session/ws"
	header := http.Header{}
	header.Set(sessionHeader, sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		SessionID string `json:"session_id"`
		Session   struct {
			State string `json:"state"`
		} `json:"session"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.SessionID != sessionID {
		t.Fatalf("session_id = %s, want %s", msg.SessionID, sessionID)
	}
	if msg.Session.State != "active" {
		t.Fatalf("state = %s, want active", msg.Session.State)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	login(t, s, "customer@example.com", "password123")

	w := doJSON(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("storefront_http_requests_total")) {
		t.Fatal("missing request counter in metrics output")
	}
}
