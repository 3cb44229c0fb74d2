// Package identity verifies ID tokens issued by the hosted identity provider.
package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
)

var (
	// ErrInvalidToken means the token failed signature or claim checks.
	ErrInvalidToken = errors.New("identity: invalid ID token")
	// ErrUnavailable means no identity project is configured.
	ErrUnavailable = errors.New("identity: verification unavailable")
)

// Identity is the verified subject of an ID token.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks an ID token and returns who it belongs to.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// Unavailable is the Verifier used when the identity project is not configured.
type Unavailable struct{}

// Verify always fails with ErrUnavailable.
func (Unavailable) Verify(context.Context, string) (*Identity, error) {
	return nil, ErrUnavailable
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

const (
	defaultCertsTTL = time.Hour
	// minRefresh bounds how often an unknown kid can force a refetch of a fresh set.
	minRefresh = time.Minute
)

// TokenVerifier validates RS256 ID tokens against the provider's published certificates.
type TokenVerifier struct {
	projectID  string
	issuer     string
	certsURL   string
	httpClient *http.Client
	now        func() time.Time

	fetches singleflight.Group

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
	fetched time.Time
}

// New returns a TokenVerifier, or Unavailable when cfg has no project id.
func New(cfg config.AuthConfig, httpClient *http.Client) Verifier {
	if cfg.ProjectID == "" {
		return Unavailable{}
	}
	return NewTokenVerifier(cfg, httpClient)
}

// NewTokenVerifier creates a TokenVerifier for cfg.ProjectID.
func NewTokenVerifier(cfg config.AuthConfig, httpClient *http.Client) *TokenVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenVerifier{
		projectID:  cfg.ProjectID,
		issuer:     cfg.IssuerPrefix + cfg.ProjectID,
		certsURL:   cfg.CertsURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Verify parses idToken and checks its signature, audience, issuer, expiry and subject.
func (v *TokenVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("token has no kid header")
			}
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// key returns the public key for kid. The certificate set is refetched when it
// has expired, or when kid is unknown and the last fetch is older than
// minRefresh. Concurrent refetches share one request and no lock is held
// while it runs.
func (v *TokenVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	now := v.now()
	fresh := now.Before(v.expires)
	seen := v.fetched
	recent := now.Sub(seen) < minRefresh
	v.mu.RUnlock()

	if ok && fresh {
		return k, nil
	}
	if fresh && recent {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if _, err, _ := v.fetches.Do("certs", func() (interface{}, error) {
		return nil, v.refresh(ctx, seen)
	}); err != nil {
		return nil, err
	}

	v.mu.RLock()
	k, ok = v.keys[kid]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return k, nil
}

// refresh fetches the certificate set unless another caller already replaced
// the one seen.
func (v *TokenVerifier) refresh(ctx context.Context, seen time.Time) error {
	v.mu.RLock()
	done := v.fetched.After(seen)
	v.mu.RUnlock()
	if done {
		return nil
	}

	keys, ttl, err := v.fetchKeys(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = keys
	v.fetched = v.now()
	v.expires = v.fetched.Add(ttl)
	return nil
}

func (v *TokenVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read signing certificates: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("signing certificates returned %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return nil, 0, fmt.Errorf("failed to parse signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, 0, fmt.Errorf("certificate %q: %w", kid, err)
		}
		keys[kid] = k
	}

	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

// maxAge reads the max-age directive of a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCertsTTL
}

var (
	_ Verifier = Unavailable{}
	_ Verifier = (*TokenVerifier)(nil)
)
