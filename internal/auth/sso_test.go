package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/store"
)

// fakeUserStore stands in for the durable user store: its map keys are
// the usernames that exist, its values their local user ids.
type fakeUserStore struct {
	existing map[string]int64
}

func (f *fakeUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := f.existing[username]
	return ok, nil
}

func (f *fakeUserStore) FindByUsername(ctx context.Context, username string) (*store.UserRecord, error) {
	id, ok := f.existing[username]
	if !ok {
		return nil, nil
	}
	return &store.UserRecord{ID: id, Username: username}, nil
}

func TestExchangeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"username": "alice", "avatar": "alice.png", "admin_type": "Regular User"},
		})
	}))
	defer srv.Close()

	ex := NewExchanger(srv.URL, nil, nil, &fakeUserStore{existing: map[string]int64{"alice": 1}})
	p, err := ex.Exchange(context.Background(), "sso-token")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if p.Username != "alice" || p.UserID != 1 || p.Avatar != "alice.png" {
		t.Errorf("got %+v", p)
	}
}

func TestExchangeRejectsUnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"username": "ghost"},
		})
	}))
	defer srv.Close()

	ex := NewExchanger(srv.URL, nil, nil, &fakeUserStore{existing: map[string]int64{}})
	_, err := ex.Exchange(context.Background(), "sso-token")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindUnauthorized {
		t.Fatalf("expected KindUnauthorized, got %v", err)
	}
}

func TestExchangeRejectsEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	ex := NewExchanger(srv.URL, nil, nil, &fakeUserStore{})
	_, err := ex.Exchange(context.Background(), "sso-token")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindUnauthorized {
		t.Fatalf("expected KindUnauthorized for empty data, got %v", err)
	}
}

func TestExchangeRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ex := NewExchanger(srv.URL, nil, nil, &fakeUserStore{})
	_, err := ex.Exchange(context.Background(), "sso-token")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindUnauthorized {
		t.Fatalf("expected KindUnauthorized for non-200 status, got %v", err)
	}
}

func TestExchangeRejectsEmptyToken(t *testing.T) {
	ex := NewExchanger("http://example.invalid", nil, nil, &fakeUserStore{})
	_, err := ex.Exchange(context.Background(), "")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindBadRequest {
		t.Fatalf("expected KindBadRequest for empty token, got %v", err)
	}
}

func TestExchangeMisconfiguredWithoutIntrospectURL(t *testing.T) {
	ex := NewExchanger("", nil, nil, &fakeUserStore{})
	_, err := ex.Exchange(context.Background(), "sso-token")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindMisconfigured {
		t.Fatalf("expected KindMisconfigured, got %v", err)
	}
}
