package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/httpapi"
	"github.com/kamideathless/books-shop/internal/purchase"
)

type env struct {
	store  *catalog.Memory
	ledger *purchase.MemoryLedger
	tokens *auth.Service
	h      http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tokens, err := auth.NewService("test-secret-0123456789")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	store := catalog.NewMemory()
	ledger := purchase.NewMemoryLedger()
	api := httpapi.New(httpapi.Options{
		Tokens:    tokens,
		Users:     store,
		Books:     store,
		Shop:      store,
		Purchases: purchase.NewOrchestrator(ledger, store),
		Version:   "test",
	})
	return &env{store: store, ledger: ledger, tokens: tokens, h: api.Handler()}
}

func (e *env) addUser(t *testing.T, username string, role catalog.Role) catalog.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := e.store.CreateUser(context.Background(), catalog.User{
		Username:     username,
		Name:         "Test User",
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func (e *env) accessToken(t *testing.T, uid int64) string {
	t.Helper()
	token, _, err := e.tokens.IssueAccess(uid)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func request(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.0.2.10:51234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	e := newEnv(t)

	rec := request(t, e.h, http.MethodPost, "/v1/users/register", "", map[string]any{
		"username": "reader42",
		"name":     "Reader",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var created catalog.User
	decodeBody(t, rec, &created)
	if created.Role != catalog.RoleUser {
		t.Errorf("registered role = %q, want %q", created.Role, catalog.RoleUser)
	}

	rec = request(t, e.h, http.MethodPost, "/v1/users/register", "", map[string]any{
		"username": "reader42",
		"name":     "Imposter",
		"password": "password456",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: got %d, want 409", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, "/v1/users/login", "", map[string]any{
		"username": "reader42",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: got %d, want 401", rec.Code)
	}
	if c := cookieByName(rec, "access_token"); c != nil {
		t.Error("bad login must not set an access cookie")
	}

	rec = request(t, e.h, http.MethodPost, "/v1/users/login", "", map[string]any{
		"username": "reader42",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, rec, &pair)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login must return both tokens")
	}
	access := cookieByName(rec, "access_token")
	refresh := cookieByName(rec, "refresh_token")
	if access == nil || refresh == nil {
		t.Fatal("login must set both auth cookies")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Error("auth cookies must be http-only")
	}

	// Refresh via cookie mints a fresh access token without rotating the
	// refresh token.
	req := httptest.NewRequest(http.MethodPost, "/v1/users/refresh", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: pair.RefreshToken})
	refreshRec := httptest.NewRecorder()
	e.h.ServeHTTP(refreshRec, req)
	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh: got %d, want 200: %s", refreshRec.Code, refreshRec.Body.String())
	}
	var refreshed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, refreshRec, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("refresh must return a new access token")
	}
	if refreshed.RefreshToken != "" {
		t.Error("refresh must not rotate the refresh token")
	}

	rec = request(t, e.h, http.MethodPost, "/v1/users/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: got %d, want 200", rec.Code)
	}
	if c := cookieByName(rec, "access_token"); c == nil || c.MaxAge >= 0 {
		t.Error("logout must expire the access cookie")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(t, "reader42", catalog.RoleUser)

	rec := request(t, e.h, http.MethodPost, "/v1/users/refresh", "", map[string]any{
		"refresh_token": e.accessToken(t, u.ID),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: got %d, want 401", rec.Code)
	}
}

func TestAccessGuard(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(t, "reader42", catalog.RoleUser)
	other := e.addUser(t, "reader43", catalog.RoleUser)
	path := fmt.Sprintf("/v1/users/%d", u.ID)

	rec := request(t, e.h, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d, want 401", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, path, "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d, want 401", rec.Code)
	}

	refreshToken, _, err := e.tokens.IssueRefresh(u.ID)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	rec = request(t, e.h, http.MethodGet, path, refreshToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token as access: got %d, want 401", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, path, e.accessToken(t, u.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// A plain user cannot read another account.
	rec = request(t, e.h, http.MethodGet, path, e.accessToken(t, other.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign account: got %d, want 403", rec.Code)
	}

	// A token naming an account that no longer exists is rejected.
	ghost := e.accessToken(t, 9999)
	rec = request(t, e.h, http.MethodGet, "/v1/users/9999", ghost, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ghost account token: got %d, want 401", rec.Code)
	}
}

func TestAdminGating(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "shopkeeper", catalog.RoleAdmin)
	user := e.addUser(t, "reader42", catalog.RoleUser)
	body := map[string]any{"title": "Dune", "author": "Frank Herbert"}

	rec := request(t, e.h, http.MethodPost, "/v1/books", e.accessToken(t, user.ID), body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user create book: got %d, want 403", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, "/v1/books", e.accessToken(t, admin.ID), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create book: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = request(t, e.h, http.MethodGet, "/v1/users/", e.accessToken(t, user.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user list users: got %d, want 403", rec.Code)
	}
	rec = request(t, e.h, http.MethodGet, "/v1/users/", e.accessToken(t, admin.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list users: got %d, want 200", rec.Code)
	}
}

func TestBooksPagination(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 12; i++ {
		if _, err := e.store.CreateBook(context.Background(), catalog.Book{
			Title:  fmt.Sprintf("Book %02d", i),
			Author: "Author",
		}); err != nil {
			t.Fatalf("CreateBook: %v", err)
		}
	}

	rec := request(t, e.h, http.MethodGet, "/v1/books/?page=1&page_size=10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("page 1: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items      []catalog.Book `json:"items"`
		Total      int            `json:"total"`
		TotalPages int            `json:"total_pages"`
	}
	decodeBody(t, rec, &page)
	if len(page.Items) != 10 || page.Total != 12 || page.TotalPages != 2 {
		t.Fatalf("page 1 = %d items, total %d, pages %d; want 10/12/2",
			len(page.Items), page.Total, page.TotalPages)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/books/?page=2&page_size=10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("page 2: got %d, want 200", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/books/?page=3&page_size=10", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("past-end page: got %d, want 404", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/books/?page=1&page_size=7", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("disallowed page_size: got %d, want 422", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/books/?page=abc", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-integer page: got %d, want 422", rec.Code)
	}
}

func TestSearchBooks(t *testing.T) {
	e := newEnv(t)
	if _, err := e.store.CreateBook(context.Background(), catalog.Book{
		Title: "Dune", Author: "Frank Herbert",
	}); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	rec := request(t, e.h, http.MethodGet, "/v1/books/search", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing q: got %d, want 422", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/books/search?q=dune", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: got %d, want 200", rec.Code)
	}
	var results []catalog.Book
	decodeBody(t, rec, &results)
	if len(results) != 1 || results[0].Title != "Dune" {
		t.Fatalf("search results = %+v, want single Dune match", results)
	}
}

func TestReviewEndpoints(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(t, "reader42", catalog.RoleUser)
	book, err := e.store.CreateBook(context.Background(), catalog.Book{
		Title: "Dune", Author: "Frank Herbert",
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	token := e.accessToken(t, u.ID)
	path := fmt.Sprintf("/v1/books/%d/reviews", book.ID)
	body := map[string]any{"rate": 4.5, "description": "great"}

	rec := request(t, e.h, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty review list: got %d, want 404", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, path, token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create review: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	// One review per (book, user).
	rec = request(t, e.h, http.MethodPost, path, token, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second review: got %d, want 409", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, "/v1/books/9999/reviews", token, body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("review for missing book: got %d, want 404", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, path, token, map[string]any{"rate": 11})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-range rate: got %d, want 422", rec.Code)
	}
}

func TestPurchaseIdempotencyOverHTTP(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(t, "reader42", catalog.RoleUser)
	other := e.addUser(t, "reader43", catalog.RoleUser)
	book, err := e.store.CreateBook(context.Background(), catalog.Book{
		Title: "Dune", Author: "Frank Herbert",
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	item, err := e.store.CreateItem(context.Background(), catalog.ShopItem{
		BookID: book.ID, Price: 49900, Stock: 10,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	body := map[string]any{"shop_item_id": item.ID}

	rec := request(t, e.h, http.MethodPost, "/v1/shop/purchase", e.accessToken(t, u.ID), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first purchase: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var first struct {
		TransactionID int64  `json:"transaction_id"`
		PaymentID     string `json:"payment_id"`
		Amount        int64  `json:"amount"`
		Status        string `json:"status"`
	}
	decodeBody(t, rec, &first)
	if first.Amount != 49900 || first.Status != "pending" {
		t.Fatalf("first purchase = %+v, want amount 49900 pending", first)
	}

	// A retry resumes the pending intent instead of creating a second one.
	rec = request(t, e.h, http.MethodPost, "/v1/shop/purchase", e.accessToken(t, u.ID), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat purchase: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var second struct {
		TransactionID int64  `json:"transaction_id"`
		PaymentID     string `json:"payment_id"`
	}
	decodeBody(t, rec, &second)
	if second.TransactionID != first.TransactionID || second.PaymentID != first.PaymentID {
		t.Fatalf("repeat purchase returned a different intent: %+v vs %+v", second, first)
	}
	if got := e.ledger.Len(); got != 1 {
		t.Fatalf("ledger rows = %d, want 1", got)
	}

	// A different user gets their own intent for the same item.
	rec = request(t, e.h, http.MethodPost, "/v1/shop/purchase", e.accessToken(t, other.ID), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("other user purchase: got %d, want 201", rec.Code)
	}

	rec = request(t, e.h, http.MethodPost, "/v1/shop/purchase", e.accessToken(t, u.ID),
		map[string]any{"shop_item_id": 9999})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing item purchase: got %d, want 404", rec.Code)
	}
}

func TestTransactionLookupIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	admin := e.addUser(t, "shopkeeper", catalog.RoleAdmin)
	u := e.addUser(t, "reader42", catalog.RoleUser)
	book, _ := e.store.CreateBook(context.Background(), catalog.Book{
		Title: "Dune", Author: "Frank Herbert",
	})
	item, _ := e.store.CreateItem(context.Background(), catalog.ShopItem{
		BookID: book.ID, Price: 49900,
	})

	rec := request(t, e.h, http.MethodPost, "/v1/shop/purchase", e.accessToken(t, u.ID),
		map[string]any{"shop_item_id": item.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase: got %d, want 201", rec.Code)
	}
	var created struct {
		TransactionID int64 `json:"transaction_id"`
	}
	decodeBody(t, rec, &created)
	path := fmt.Sprintf("/v1/shop/transactions/%d", created.TransactionID)

	rec = request(t, e.h, http.MethodGet, path, e.accessToken(t, u.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user transaction lookup: got %d, want 403", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, path, e.accessToken(t, admin.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin transaction lookup: got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = request(t, e.h, http.MethodGet, "/v1/shop/transactions/9999", e.accessToken(t, admin.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing transaction: got %d, want 404", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := request(t, e.h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d, want 200", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz without probe: got %d, want 200", rec.Code)
	}

	rec = request(t, e.h, http.MethodGet, "/v1/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info: got %d, want 200", rec.Code)
	}
	if rid := rec.Header().Get("X-Request-ID"); rid == "" {
		t.Error("responses must carry a request id header")
	}
}

func TestReadyzReportsProbeFailure(t *testing.T) {
	tokens, err := auth.NewService("test-secret-0123456789")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	store := catalog.NewMemory()
	ledger := purchase.NewMemoryLedger()
	api := httpapi.New(httpapi.Options{
		Tokens:    tokens,
		Users:     store,
		Books:     store,
		Shop:      store,
		Purchases: purchase.NewOrchestrator(ledger, store),
		Ready:     func(ctx context.Context) error { return context.DeadlineExceeded },
	})

	rec := request(t, api.Handler(), http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing probe: got %d, want 503", rec.Code)
	}
}
