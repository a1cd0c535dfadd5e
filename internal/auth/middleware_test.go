package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthorizerRejectsMissingCookie(t *testing.T) {
	store, _ := newTestStore(t)
	az := NewAuthorizer(store, &fakeUserStore{existing: map[string]int64{}}, "judgecore_token", testLogger())

	handler := az.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing cookie, got %d", rr.Code)
	}
}

func TestAuthorizerAcceptsValidSession(t *testing.T) {
	store, _ := newTestStore(t)
	az := NewAuthorizer(store, &fakeUserStore{existing: map[string]int64{"alice": 1}}, "judgecore_token", testLogger())

	token, err := store.Put(context.Background(), &Principal{UserID: 1, Username: "alice", AdminType: "Regular User"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var gotPrincipal *Principal
	handler := az.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		gotPrincipal = p
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "judgecore_token", Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotPrincipal == nil || gotPrincipal.Username != "alice" {
		t.Errorf("expected principal attached to context, got %+v", gotPrincipal)
	}
}

func TestAuthorizerRejectsVanishedUser(t *testing.T) {
	store, _ := newTestStore(t)
	az := NewAuthorizer(store, &fakeUserStore{existing: map[string]int64{}}, "judgecore_token", testLogger())

	token, err := store.Put(context.Background(), &Principal{UserID: 1, Username: "deleted-user"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	handler := az.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "judgecore_token", Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for vanished user, got %d", rr.Code)
	}
}
