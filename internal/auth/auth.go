package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Identity is the validated-identity contract the saga consumes. How tokens
// are issued is the auth collaborator's business.
type Identity struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (id Identity) IsAdmin() bool { return id.Role == "admin" }

// Validator turns a bearer token into an Identity.
type Validator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

// Client validates tokens against the auth collaborator.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

func (c *Client) Validate(ctx context.Context, token string) (Identity, error) {
	body := strings.NewReader(`{"token":` + quote(token) + `}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/auth/validate", body)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, errors.New("auth validate failed")
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

type ctxKey int

const identityKey ctxKey = 0
const tokenKey ctxKey = 1

// FromContext returns the identity the middleware attached.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// TokenFromContext returns the raw bearer token so handlers can forward it
// on downstream synchronous calls.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// WithIdentity injects an identity directly; used by tests and internal routes.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Middleware rejects requests without a valid bearer token and attaches the
// identity and token to the request context.
func Middleware(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token == r.Header.Get("Authorization") {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}
			id, err := v.Validate(r.Context(), token)
			if err != nil || !id.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
