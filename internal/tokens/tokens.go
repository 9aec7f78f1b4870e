// Package tokens issues and verifies the HS256 access tokens handed out by the auth gateway.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"hopper/internal/config"
)

var (
	// ErrInvalidToken covers malformed, forged and expired tokens.
	ErrInvalidToken = errors.New("tokens: invalid token")
	// ErrRevoked is returned for tokens that were signed out before they expired.
	ErrRevoked = errors.New("tokens: token revoked")
)

var algorithms = []jose.SignatureAlgorithm{jose.HS256}

// Claims carried by every access token.
type Claims struct {
	jwt.Claims
	Username string   `json:"preferred_username"`
	Roles    []string `json:"roles,omitempty"`
}

// Issued describes a freshly signed token.
type Issued struct {
	Token     string
	ID        string
	TokenType string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// Manager signs, verifies and revokes tokens.
type Manager struct {
	cfg     config.TokenConfig
	key     []byte
	signer  jose.Signer
	revoked *gocache.Cache
	now     func() time.Time
}

// NewManager builds a Manager from cfg. An empty secret yields a random per-process key, so
// tokens do not survive a restart.
func NewManager(cfg config.TokenConfig) (*Manager, error) {
	var key []byte
	if secret := strings.TrimSpace(cfg.Secret); secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	} else {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RememberMeTTL < cfg.AccessTTL {
		cfg.RememberMeTTL = cfg.AccessTTL
	}
	if cfg.TokenType == "" {
		cfg.TokenType = "Bearer"
	}

	return &Manager{
		cfg:     cfg,
		key:     key,
		signer:  signer,
		revoked: gocache.New(cfg.RememberMeTTL, time.Minute),
		now:     time.Now,
	}, nil
}

// Issue signs a token for subject. rememberMe selects the long lifetime.
func (m *Manager) Issue(subject, username string, roles []string, rememberMe bool) (Issued, error) {
	ttl := m.cfg.AccessTTL
	if rememberMe {
		ttl = m.cfg.RememberMeTTL
	}

	now := m.now().UTC()
	expires := now.Add(ttl)
	id := uuid.NewString()
	claims := Claims{
		Claims: jwt.Claims{
			ID:        id,
			Issuer:    m.cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.Audience{m.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(expires),
		},
		Username: username,
		Roles:    roles,
	}

	raw, err := jwt.Signed(m.signer).Claims(claims).Serialize()
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}

	return Issued{
		Token:     raw,
		ID:        id,
		TokenType: m.cfg.TokenType,
		ExpiresIn: ttl,
		ExpiresAt: expires,
	}, nil
}

// Verify checks the signature, issuer, audience, lifetime and revocation state of raw.
func (m *Manager) Verify(raw string) (Claims, error) {
	tok, err := jwt.ParseSigned(strings.TrimSpace(raw), algorithms)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if err := tok.Claims(m.key, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expected := jwt.Expected{
		Issuer:      m.cfg.Issuer,
		AnyAudience: jwt.Audience{m.cfg.Audience},
		Time:        m.now(),
	}
	if err := claims.Claims.ValidateWithLeeway(expected, 0); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, revoked := m.revoked.Get(claims.ID); revoked {
		return Claims{}, ErrRevoked
	}
	return claims, nil
}

// Revoke rejects the token identified by claims until it would have expired anyway.
func (m *Manager) Revoke(claims Claims) {
	if claims.ID == "" || claims.Expiry == nil {
		return
	}
	ttl := claims.Expiry.Time().Sub(m.now())
	if ttl <= 0 {
		return
	}
	m.revoked.Set(claims.ID, struct{}{}, ttl)
}

// TokenType is the scheme reported alongside issued tokens.
func (m *Manager) TokenType() string {
	return m.cfg.TokenType
}
