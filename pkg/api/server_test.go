package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/core"
	"github.com/moss-street/tradeserver/pkg/session"
	"github.com/moss-street/tradeserver/pkg/store"
	"github.com/moss-street/tradeserver/pkg/util"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	db, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := session.NewManager(util.RealClock{})
	registry := core.NewRegistry(nil, nil)
	registry.AddMarket("BTC", "USD")

	s := NewServer(sessions, db, registry, nil)
	return s, db
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateUser_ThenLogin(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/auth/users", CreateUserRequest{
		Email: "dave@example.com", Password: "hunter2", FirstName: "Dave", LastName: "D",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create user status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/auth/login", LoginUserRequest{
		Email: "dave@example.com", Password: "hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp LoginUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}
	if resp.User == nil || resp.User.Token == "" {
		t.Fatalf("login response missing a session token: %+v", resp)
	}
}

func TestHandleCreateUser_DuplicateEmailConflicts(t *testing.T) {
	s, _ := newTestServer(t)
	req := CreateUserRequest{Email: "dup@example.com", Password: "pw", FirstName: "A", LastName: "B"}

	doJSON(t, s, http.MethodPost, "/v1/auth/users", req)
	rec := doJSON(t, s, http.MethodPost, "/v1/auth/users", req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create user status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestHandleLoginUser_WrongPasswordUnauthorized(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/v1/auth/users", CreateUserRequest{
		Email: "erin@example.com", Password: "correct", FirstName: "E", LastName: "R",
	})
	rec := doJSON(t, s, http.MethodPost, "/v1/auth/login", LoginUserRequest{
		Email: "erin@example.com", Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleCreateTrade_RequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/trade", CreateTradeRequest{
		TradeRequest: &TradeRequest{SymbolSource: "BTC", SymbolDest: "USD", SourceQuantity: 1, TradeType: "Market"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleCreateTrade_RestsALimitOrder(t *testing.T) {
	s, db := newTestServer(t)

	user, err := db.CreateUser("frank@example.com", "irrelevant", "Frank", "F")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := db.SeedWallet(user.ID, "BTC", "5"); err != nil {
		t.Fatalf("SeedWallet(BTC): %v", err)
	}
	if err := db.SeedWallet(user.ID, "USD", "0"); err != nil {
		t.Fatalf("SeedWallet(USD): %v", err)
	}

	cached, _ := s.directory.GetOrCreate(user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName)
	cached.Ledger.EnsureWallet("BTC", decimal.RequireFromString("5"))
	cached.Ledger.EnsureWallet("USD", decimal.RequireFromString("0"))

	sess, err := s.sessions.NewSession(cached)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	price := 100.0
	req := httptest.NewRequest(http.MethodPost, "/v1/trade", bytes.NewReader(mustJSON(t, CreateTradeRequest{
		TradeRequest: &TradeRequest{
			SymbolSource: "BTC", SymbolDest: "USD", SourceQuantity: 2, TradeType: "Limit", Price: &price,
		},
	})))
	req.Header.Set("Authorization", string(sess.Token))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp CreateTradeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "Ok" {
		t.Fatalf("status field = %q, body = %s", resp.Status, rec.Body.String())
	}
	if resp.TradeID == nil {
		t.Fatal("resting order response is missing trade_id")
	}
}

func TestHandleGetBook_UnknownPair(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/markets/ETH-USD/book", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 400 or 404 for an unregistered market", rec.Code)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
