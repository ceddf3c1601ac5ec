package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"salesintel/internal/domain"
)

// ClientInfo identifies an authenticated API client.
type ClientInfo struct {
	Name  string
	Roles []string
}

// Authenticator validates API tokens.
type Authenticator interface {
	Authenticate(token string) (*ClientInfo, error)
}

// TokenEntry is one configured API token.
type TokenEntry struct {
	Token string
	Name  string
	Roles []string
}

type authEntry struct {
	token []byte
	info  *ClientInfo
}

// StaticTokenAuth checks tokens against a fixed list in constant time.
type StaticTokenAuth struct {
	entries []authEntry
}

// NewStaticTokenAuth builds an authenticator from entries.
func NewStaticTokenAuth(entries []TokenEntry) *StaticTokenAuth {
	a := &StaticTokenAuth{entries: make([]authEntry, len(entries))}
	for i, e := range entries {
		a.entries[i] = authEntry{
			token: []byte(e.Token),
			info:  &ClientInfo{Name: e.Name, Roles: e.Roles},
		}
	}
	return a
}

// Authenticate returns the client owning token.
func (s *StaticTokenAuth) Authenticate(token string) (*ClientInfo, error) {
	tokenBytes := []byte(token)
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(tokenBytes, e.token) == 1 {
			return e.info, nil
		}
	}
	return nil, domain.ErrUnauthorized
}

// bearerToken reads "Authorization: Bearer <t>", falling back to ?token=
// for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return r.URL.Query().Get("token")
}

type clientKey struct{}

// clientName is the authenticated client for ctx, or "anonymous".
func clientName(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey{}).(*ClientInfo); ok && c.Name != "" {
		return c.Name
	}
	return "anonymous"
}

// requireAuth rejects requests without a valid token and stores the client
// on the request context. A nil auth lets everything through. denied, when
// set, observes each rejected request.
func requireAuth(auth Authenticator, denied func(*http.Request), next http.Handler) http.Handler {
	if auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, err := auth.Authenticate(bearerToken(r))
		if err != nil {
			if denied != nil {
				denied(r)
			}
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey{}, client)))
	})
}
