package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bookhive/internal/app"
	"bookhive/pkg/auth"
	"bookhive/pkg/domain"
	"bookhive/pkg/payment"
	"bookhive/pkg/store"
)

type stubMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *stubMailer) SendPlainText(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

type stubLedger struct {
	mu    sync.Mutex
	codes map[string]string
}

func (l *stubLedger) Issue(_ context.Context, subjectID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes[subjectID] = "4321"
	return "4321", nil
}

func (l *stubLedger) Consume(_ context.Context, subjectID, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	want, ok := l.codes[subjectID]
	if !ok {
		return store.ErrOTPNotFound
	}
	if want != code {
		return store.ErrOTPInvalid
	}
	delete(l.codes, subjectID)
	return nil
}

type stubObjects struct{}

func (stubObjects) Put(context.Context, string, io.Reader, int64, string) error { return nil }
func (stubObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}
func (stubObjects) PublicURL(key string) string { return "https://objects.test/" + key }
func (stubObjects) Delete(context.Context, string) error { return nil }

type stubGateway struct{}

func (stubGateway) AuthToken(context.Context) (string, error) { return "tok", nil }
func (stubGateway) CreateOrder(context.Context, string, string, int64) (int64, error) {
	return 42, nil
}
func (stubGateway) PaymentKey(context.Context, string, int64, int64, payment.BillingProfile, map[string]string) (string, error) {
	return "pay-key", nil
}
func (stubGateway) IframeURL(paymentKey string) string {
	return "https://gateway.test/iframe?payment_token=" + paymentKey
}

type testServer struct {
	ts    *httptest.Server
	store *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemoryStore()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	a, err := app.New(app.Config{
		Store:   mem,
		OTPs:    &stubLedger{codes: make(map[string]string)},
		Objects: stubObjects{},
		Mailer:  &stubMailer{},
		Gateway: stubGateway{},
		Tokens:  tokens,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv, err := New(Config{App: a})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{ts: ts, store: mem}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

// registerAndLogin drives the full signup flow over HTTP and returns a token.
func (s *testServer) registerAndLogin(t *testing.T, name, email string, admin bool) string {
	t.Helper()
	resp, data := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", resp.StatusCode, data)
	}
	var reg struct {
		Data struct {
			UserID string `json:"userId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	resp, data = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"_id": reg.Data.UserID, "otp": "4321",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d: %s", resp.StatusCode, data)
	}
	if admin {
		user, ok, err := s.store.GetUserByEmail(email)
		if err != nil || !ok {
			t.Fatalf("lookup user: ok=%v err=%v", ok, err)
		}
		user.Role = domain.RoleAdmin
		if err := s.store.SaveUser(user); err != nil {
			t.Fatalf("promote to admin: %v", err)
		}
	}
	path := "/api/auth/login"
	if admin {
		path = "/api/auth/admin-login"
	}
	resp, data = s.do(t, http.MethodPost, path, "", map[string]string{
		"email": email, "password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.StatusCode, data)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil || login.Token == "" {
		t.Fatalf("decode login response: %v (%s)", err, data)
	}
	return login.Token
}

func TestRegistrationFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa Samir", "alaa@example.com", false)

	resp, data := s.do(t, http.MethodGet, "/api/auth/", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("whoami status %d: %s", resp.StatusCode, data)
	}
	var who struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &who); err != nil || who.ID == "" {
		t.Fatalf("decode whoami: %v (%s)", err, data)
	}
}

func TestVerifyWithWrongCode(t *testing.T) {
	s := newTestServer(t)
	resp, data := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alaa", "email": "alaa@example.com", "password": "secret1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", resp.StatusCode, data)
	}
	var reg struct {
		Data struct {
			UserID string `json:"userId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"_id": reg.Data.UserID, "otp": "0000",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong code status %d, want 400", resp.StatusCode)
	}
	// login is impossible before verification
	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alaa@example.com", "password": "secret1",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("pre-verification login status %d, want 401", resp.StatusCode)
	}
}

func TestAccessGate(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/api/users", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status %d, want 401", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/users", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status %d, want 401", resp.StatusCode)
	}
	userToken := s.registerAndLogin(t, "Alaa", "alaa@example.com", false)
	resp, _ = s.do(t, http.MethodGet, "/api/users", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status %d, want 403", resp.StatusCode)
	}
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)
	resp, _ = s.do(t, http.MethodGet, "/api/users", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin status %d, want 200", resp.StatusCode)
	}
}

func TestAdminCatalogCRUD(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)
	userToken := s.registerAndLogin(t, "Reader", "reader@example.com", false)

	// non-admin writes are rejected
	resp, _ := s.do(t, http.MethodPost, "/api/books", userToken, map[string]string{"name": "Nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin create status %d, want 403", resp.StatusCode)
	}

	resp, data := s.do(t, http.MethodPost, "/api/authors", adminToken, map[string]string{"name": "Frank Herbert"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create author status %d: %s", resp.StatusCode, data)
	}
	var author domain.Author
	if err := json.Unmarshal(data, &author); err != nil {
		t.Fatalf("decode author: %v", err)
	}

	resp, data = s.do(t, http.MethodPost, "/api/books", adminToken, map[string]string{
		"name": "Dune", "authorId": author.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book status %d: %s", resp.StatusCode, data)
	}
	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if book.AuthorName != "Frank Herbert" {
		t.Fatalf("author name %q not resolved", book.AuthorName)
	}

	// partial update touches only the provided field
	resp, data = s.do(t, http.MethodPut, "/api/books/"+book.ID, adminToken, map[string]string{
		"description": "Spice and sandworms.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update book status %d: %s", resp.StatusCode, data)
	}
	var updated domain.Book
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("decode updated book: %v", err)
	}
	if updated.Name != "Dune" || updated.Description != "Spice and sandworms." {
		t.Fatalf("partial update broke fields: %+v", updated)
	}

	// public read
	resp, data = s.do(t, http.MethodGet, "/api/books", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(data, &page); err != nil || page.Total != 1 {
		t.Fatalf("list total = %d (%v)", page.Total, err)
	}

	resp, _ = s.do(t, http.MethodDelete, "/api/books/"+book.ID, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/books/"+book.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted book status %d, want 404", resp.StatusCode)
	}
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa Samir", "alaa@example.com", false)

	resp, data := s.do(t, http.MethodPost, "/payment", token, map[string]any{
		"subscriptionType": "monthly",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payment status %d: %s", resp.StatusCode, data)
	}
	var out struct {
		IframeURL string `json:"iframeURL"`
	}
	if err := json.Unmarshal(data, &out); err != nil || !strings.Contains(out.IframeURL, "payment_token=") {
		t.Fatalf("unexpected payment response %s", data)
	}

	user, _, _ := s.store.GetUserByEmail("alaa@example.com")
	webhook := map[string]any{
		"type": "TRANSACTION",
		"obj": map[string]any{
			"id":      1234,
			"success": true,
			"order":   map[string]any{"merchant_order_id": user.ID + "-monthly"},
		},
	}
	resp, data = s.do(t, http.MethodPost, "/payment/notification", "", webhook)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status %d: %s", resp.StatusCode, data)
	}

	resp, data = s.do(t, http.MethodGet, "/api/subscription", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subscription status %d", resp.StatusCode)
	}
	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		t.Fatalf("decode subscription: %v", err)
	}
	if sub.Status != domain.StatusPremium || !sub.IsActive {
		t.Fatalf("subscription not premium after webhook: %+v", sub)
	}
}

func TestWebhookDuplicateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa", "alaa@example.com", false)
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)

	resp, data := s.do(t, http.MethodPost, "/api/books", adminToken, map[string]string{"name": "Dune"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book status %d: %s", resp.StatusCode, data)
	}
	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	user, _, _ := s.store.GetUserByEmail("alaa@example.com")
	webhook := map[string]any{
		"type": "TRANSACTION",
		"obj": map[string]any{
			"id":      987,
			"success": true,
			"order":   map[string]any{"merchant_order_id": user.ID + "-" + book.ID},
		},
	}
	resp, _ = s.do(t, http.MethodPost, "/payment/notification", "", webhook)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first delivery status %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/payment/notification", "", webhook)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("redelivery status %d, want 400", resp.StatusCode)
	}

	resp, data = s.do(t, http.MethodGet, "/api/purchase-book", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchases status %d", resp.StatusCode)
	}
	var purchases []domain.PurchasedBook
	if err := json.Unmarshal(data, &purchases); err != nil {
		t.Fatalf("decode purchases: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("purchases = %d, want 1", len(purchases))
	}
}

func TestWebhookRejectsNonTransactionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "Alaa", "alaa@example.com", false)

	user, _, _ := s.store.GetUserByEmail("alaa@example.com")
	webhook := map[string]any{
		"type": "TOKEN",
		"obj": map[string]any{
			"id":      555,
			"success": true,
			"order":   map[string]any{"merchant_order_id": user.ID + "-monthly"},
		},
	}
	resp, _ := s.do(t, http.MethodPost, "/payment/notification", "", webhook)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-transaction delivery status %d, want 400", resp.StatusCode)
	}
	if _, ok, _ := s.store.GetSubscriptionByUser(user.ID); ok {
		t.Fatal("no subscription expected after rejected delivery")
	}
}

func TestRolePromotionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa", "alaa@example.com", false)
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)
	user, _, _ := s.store.GetUserByEmail("alaa@example.com")

	resp, data := s.do(t, http.MethodPut, "/api/users/"+user.ID, token, map[string]string{"role": "admin"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self-promotion status %d, want 403: %s", resp.StatusCode, data)
	}
	resp, data = s.do(t, http.MethodPut, "/api/users/"+user.ID, adminToken, map[string]string{"role": "admin"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("promotion status %d: %s", resp.StatusCode, data)
	}
	resp, data = s.do(t, http.MethodPost, "/api/auth/admin-login", "", map[string]string{
		"email": "alaa@example.com", "password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin-login after promotion status %d: %s", resp.StatusCode, data)
	}
}

func TestPageGateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa", "alaa@example.com", false)
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)

	resp, data := s.do(t, http.MethodPost, "/api/books", adminToken, map[string]string{"name": "Dune"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book status %d", resp.StatusCode)
	}
	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if err := s.store.SetBookFile(book.ID, "books/"+book.ID+".pdf", 400); err != nil {
		t.Fatalf("SetBookFile: %v", err)
	}

	resp, _ = s.do(t, http.MethodGet, "/api/books/"+book.ID+"/content?pages=5", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("free span status %d, want 200", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/books/"+book.ID+"/content?pages=15", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("gated span status %d, want 403", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/books/"+book.ID+"/content?pages=15", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous content status %d, want 401", resp.StatusCode)
	}
}

func TestRatingEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Alaa", "alaa@example.com", false)
	adminToken := s.registerAndLogin(t, "Admin", "admin@example.com", true)

	resp, data := s.do(t, http.MethodPost, "/api/books", adminToken, map[string]string{"name": "Dune"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book status %d", resp.StatusCode)
	}
	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}

	resp, data = s.do(t, http.MethodPost, "/api/ratings", token, map[string]any{
		"bookId": book.ID, "rating": 4,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rate status %d: %s", resp.StatusCode, data)
	}
	resp, data = s.do(t, http.MethodGet, "/api/ratings/average/"+book.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("average status %d", resp.StatusCode)
	}
	var avg struct {
		AverageRating float64 `json:"averageRating"`
		RatingCount   int64   `json:"ratingCount"`
	}
	if err := json.Unmarshal(data, &avg); err != nil {
		t.Fatalf("decode average: %v", err)
	}
	if avg.AverageRating != 4 || avg.RatingCount != 1 {
		t.Fatalf("average %+v, want 4/1", avg)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/ratings", token, map[string]any{
		"bookId": book.ID, "rating": 9,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range rating status %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp, data := s.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
	if !bytes.Contains(data, []byte("ok")) {
		t.Fatalf("healthz body %s", data)
	}
}
