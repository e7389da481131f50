package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"library-lending/library"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "lib.db"))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.EnsureAdmin("Admin", adminEmail, adminPassword); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	return SetupRoutes(NewServer(mgr, nil))
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, engine *gin.Engine, email, password string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func registerMember(t *testing.T, engine *gin.Engine, email string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Member",
		"email":    email,
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", rec.Code, rec.Body.String())
	}
	return login(t, engine, email, "secret123")
}

func createBook(t *testing.T, engine *gin.Engine, adminToken, title string, stock int) library.Book {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/books", adminToken, gin.H{
		"title":       title,
		"author":      "Author",
		"category":    "Fiction",
		"stock_count": stock,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: status %d: %s", rec.Code, rec.Body.String())
	}
	var book library.Book
	decode(t, rec, &book)
	return book
}

func TestAuthEndpoints(t *testing.T) {
	engine := newTestServer(t)

	token := registerMember(t, engine, "alice@example.com")
	if token == "" {
		t.Fatalf("expected session token")
	}

	// Duplicate registration conflicts.
	rec := doJSON(t, engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Alice Again", "email": "alice@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", rec.Code)
	}

	// Wrong password.
	rec = doJSON(t, engine, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "nope-nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", rec.Code)
	}

	// Authenticated routes reject missing tokens.
	rec = doJSON(t, engine, http.MethodPost, "/api/loans/borrow/1", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	engine := newTestServer(t)
	adminToken := login(t, engine, adminEmail, adminPassword)
	memberToken := registerMember(t, engine, "bob@example.com")

	book := createBook(t, engine, adminToken, "The Trial", 2)
	if book.AvailableCount != 2 {
		t.Fatalf("available = %d, want 2", book.AvailableCount)
	}

	// Catalog writes are admin-only.
	rec := doJSON(t, engine, http.MethodPost, "/api/books", memberToken, gin.H{"title": "Nope", "author": "X", "stock_count": 1})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member create book: status %d", rec.Code)
	}

	// Public search.
	rec = doJSON(t, engine, http.MethodGet, "/api/books/search?query=trial", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d", rec.Code)
	}
	var found []library.Book
	decode(t, rec, &found)
	if len(found) != 1 || found[0].ID != book.ID {
		t.Fatalf("search results: %+v", found)
	}

	// Update and delete.
	rec = doJSON(t, engine, http.MethodPut, "/api/books/"+itoa(book.ID), adminToken, gin.H{
		"title": "The Trial", "author": "Franz Kafka", "stock_count": 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}
	var updated library.Book
	decode(t, rec, &updated)
	if updated.AvailableCount != 5 || updated.Author != "Franz Kafka" {
		t.Fatalf("updated book: %+v", updated)
	}

	rec = doJSON(t, engine, http.MethodDelete, "/api/books/"+itoa(book.ID), adminToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodGet, "/api/books/search?query=trial", "", nil)
	decode(t, rec, &found)
	if len(found) != 0 {
		t.Fatalf("deleted book still searchable")
	}
}

func TestLendingEndpoints(t *testing.T) {
	engine := newTestServer(t)
	adminToken := login(t, engine, adminEmail, adminPassword)
	memberToken := registerMember(t, engine, "carol@example.com")

	book := createBook(t, engine, adminToken, "Single Copy", 1)

	// Borrow the only copy.
	rec := doJSON(t, engine, http.MethodPost, "/api/loans/borrow/"+itoa(book.ID), memberToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("borrow: status %d: %s", rec.Code, rec.Body.String())
	}
	var loan library.Loan
	decode(t, rec, &loan)
	if loan.BookID != book.ID || loan.Returned() {
		t.Fatalf("loan: %+v", loan)
	}

	// Second borrow conflicts.
	rec = doJSON(t, engine, http.MethodPost, "/api/loans/borrow/"+itoa(book.ID), memberToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("exhausted borrow: status %d", rec.Code)
	}

	// Deleting a book with an open loan conflicts.
	rec = doJSON(t, engine, http.MethodDelete, "/api/books/"+itoa(book.ID), adminToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete on-loan book: status %d", rec.Code)
	}

	// Admin sees the open loan and its borrower.
	rec = doJSON(t, engine, http.MethodGet, "/api/loans/active", adminToken, nil)
	var active []library.Loan
	decode(t, rec, &active)
	if len(active) != 1 || active[0].ID != loan.ID {
		t.Fatalf("active loans: %+v", active)
	}
	rec = doJSON(t, engine, http.MethodGet, "/api/loans/current/"+itoa(book.ID), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current borrower: status %d", rec.Code)
	}

	// Loan views are admin-only.
	rec = doJSON(t, engine, http.MethodGet, "/api/loans/active", memberToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member active loans: status %d", rec.Code)
	}

	// Return, then double return.
	rec = doJSON(t, engine, http.MethodPut, "/api/loans/return/"+itoa(loan.ID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("return: status %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, engine, http.MethodPut, "/api/loans/return/"+itoa(loan.ID), memberToken, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double return: status %d", rec.Code)
	}

	// The member keeps the closed loan in their history.
	rec = doJSON(t, engine, http.MethodGet, "/api/loans/history/my", memberToken, nil)
	var history []library.Loan
	decode(t, rec, &history)
	if len(history) != 1 || !history[0].Returned() {
		t.Fatalf("history: %+v", history)
	}

	// Unknown ids surface as 404.
	rec = doJSON(t, engine, http.MethodPost, "/api/loans/borrow/9999", memberToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("borrow unknown book: status %d", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodPut, "/api/loans/return/9999", memberToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("return unknown loan: status %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
