package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/store"
)

// UserExistenceChecker abstracts the durable user store lookups the SSO
// Exchanger and Authorizer need: a username must still resolve to a real
// user record, and its local id is the source of truth for Principal.UserID.
type UserExistenceChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindByUsername(ctx context.Context, username string) (*store.UserRecord, error)
}

const (
	introspectAttempts    = 3
	introspectConnTimeout = 8 * time.Second
	introspectTotalTimeout = 15 * time.Second
)

// Exchanger turns an upstream SSO token into a local Principal, either via
// a local JWT fast-path (when an OIDC issuer is configured) or by calling
// out to the SSO introspection endpoint with retry/backoff.
type Exchanger struct {
	introspectURL string
	httpClient    *http.Client
	oidcVerifier  *oidc.IDTokenVerifier
	tokenSource   oauth2.TokenSource
	users         UserExistenceChecker
}

// NewExchanger builds an Exchanger. oidcVerifier and clientCreds are
// optional; when oidcVerifier is nil, every token goes through remote
// introspection. When clientCreds is non-nil, a token obtained with it
// authenticates the introspection request.
func NewExchanger(introspectURL string, oidcVerifier *oidc.IDTokenVerifier, clientCreds *clientcredentials.Config, users UserExistenceChecker) *Exchanger {
	e := &Exchanger{
		introspectURL: introspectURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: introspectConnTimeout}).DialContext,
			},
		},
		oidcVerifier: oidcVerifier,
		users:        users,
	}
	if clientCreds != nil {
		e.tokenSource = clientCreds.TokenSource(context.Background())
	}
	return e
}

type introspectResponse struct {
	Data map[string]any `json:"data"`
}

// Exchange resolves ssoToken to a Principal.
func (e *Exchanger) Exchange(ctx context.Context, ssoToken string) (*Principal, error) {
	if ssoToken == "" {
		return nil, apperr.New(apperr.KindBadRequest, "bad request")
	}

	if e.oidcVerifier != nil {
		if p, ok := e.tryLocalVerify(ctx, ssoToken); ok {
			return e.resolveUser(ctx, p.Username, p)
		}
	}

	userData, err := e.introspect(ctx, ssoToken)
	if err != nil {
		return nil, err
	}
	if len(userData) == 0 {
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid SSO token")
	}

	username, _ := userData["username"].(string)
	p := &Principal{Username: username}
	if avatar, ok := userData["avatar"].(string); ok {
		p.Avatar = avatar
	}
	if adminType, ok := userData["admin_type"].(string); ok {
		p.AdminType = adminType
	}

	return e.resolveUser(ctx, username, p)
}

func (e *Exchanger) tryLocalVerify(ctx context.Context, token string) (*Principal, bool) {
	idToken, err := e.oidcVerifier.Verify(ctx, token)
	if err != nil {
		return nil, false
	}
	var claims struct {
		Username  string `json:"preferred_username"`
		Avatar    string `json:"avatar"`
		AdminType string `json:"admin_type"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, false
	}
	return &Principal{Username: claims.Username, Avatar: claims.Avatar, AdminType: claims.AdminType}, true
}

// resolveUser resolves p's user_id by username from the durable user
// store; the SSO response's own id claim, if any, is never trusted.
func (e *Exchanger) resolveUser(ctx context.Context, username string, p *Principal) (*Principal, error) {
	if username == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid SSO token")
	}
	record, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving user by username: %w", err)
	}
	if record == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "user not found")
	}
	p.UserID = record.ID
	return p, nil
}

// introspect POSTs the SSO token to the introspection endpoint, retrying
// transport failures with a linear 1.5s*(attempt+1) backoff up to
// introspectAttempts times.
func (e *Exchanger) introspect(ctx context.Context, ssoToken string) (map[string]any, error) {
	if e.introspectURL == "" {
		return nil, apperr.New(apperr.KindMisconfigured, "SSO introspection endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, introspectTotalTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"token": ssoToken})
	if err != nil {
		return nil, fmt.Errorf("marshaling introspection request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < introspectAttempts; attempt++ {
		resp, err := e.doIntrospectRequest(ctx, body)
		if err != nil {
			lastErr = err
			if attempt == introspectAttempts-1 {
				return nil, apperr.Wrap(apperr.KindUpstreamUnavail, "SSO service temporarily unavailable", err)
			}
			select {
			case <-time.After(time.Duration(1.5*float64(attempt+1)) * time.Second):
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.KindUpstreamUnavail, "SSO service temporarily unavailable", ctx.Err())
			}
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, apperr.New(apperr.KindUnauthorized, "SSO unreachable")
		}

		var parsed introspectResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid SSO token", err)
		}
		return parsed.Data, nil
	}
	return nil, apperr.Wrap(apperr.KindUpstreamUnavail, "SSO service temporarily unavailable", lastErr)
}

func (e *Exchanger) doIntrospectRequest(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.introspectURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if e.tokenSource != nil {
		tok, err := e.tokenSource.Token()
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		}
	}

	return e.httpClient.Do(req)
}
