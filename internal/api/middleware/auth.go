package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/api"
	"github.com/cloo-solutions/consultbot/internal/domain"
)

type contextKey string

// APIKeyHeader is accepted in place of a bearer token.
const APIKeyHeader = "X-API-Key"

// AuthValidator checks an API key.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, key string) error
}

// KeySet accepts any of a fixed list of keys, so a key can be rotated by
// deploying old and new side by side.
type KeySet [][]byte

// NewKeySet builds a KeySet from keys, trimming blanks. It returns nil when no
// key remains.
func NewKeySet(keys ...string) KeySet {
	var set KeySet
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set = append(set, []byte(k))
		}
	}
	return set
}

// ParseKeySet splits a comma-separated key list.
func ParseKeySet(list string) KeySet {
	return NewKeySet(strings.Split(list, ",")...)
}

// ValidateAPIKey compares key against every entry in constant time.
func (s KeySet) ValidateAPIKey(_ context.Context, key string) error {
	ok := 0
	for _, k := range s {
		ok |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	if ok != 1 {
		return domain.ErrInvalidAPIKey
	}
	return nil
}

// APIKeyAuth requires a key accepted by validator, sent either as
// "Authorization: Bearer <key>" or in X-API-Key. A nil validator disables the
// check.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, problem := credentials(r)
			if problem != "" {
				api.Error(w, http.StatusUnauthorized, problem)
				return
			}
			if err := validator.ValidateAPIKey(r.Context(), key); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func credentials(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, key, found := strings.Cut(auth, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(key) == "" {
			return "", "invalid authorization format"
		}
		return strings.TrimSpace(key), ""
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key, ""
	}
	return "", "missing authorization header"
}
