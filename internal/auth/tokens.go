package auth

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/icberg-810202/tilecatread/internal/id"
)

const (
	tokenIssuer   = "tilecatread-docserver"
	tokenAudience = "tilecatread-documents"

	keyBytesSize = 32
	keyHexSize   = 64

	// ScopeAll grants access to every user's document.
	ScopeAll = "*"
)

// DocumentClaims are carried inside a document access token.
type DocumentClaims struct {
	Scope      string    `json:"scope"`
	Issuer     string    `json:"iss"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Allows reports whether the token may read and write username's document.
func (c *DocumentClaims) Allows(username string) bool {
	return c.Scope == ScopeAll || c.Scope == username
}

// TokenService issues and verifies PASETO v4.local document tokens.
type TokenService struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a service from a 64-character hex key.
func NewTokenService(keyHex string, ttl time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a token granting access to scope (a username or ScopeAll).
func (s *TokenService) Issue(scope string) (string, error) {
	if scope == "" {
		return "", fmt.Errorf("token scope cannot be empty")
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetSubject(scope)

	jti, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(jti)
	//nolint:errcheck // Set only fails for values that cannot be marshalled
	_ = token.Set("scope", scope)

	return token.V4Encrypt(s.key, nil), nil
}

// Verify decrypts and validates a token.
func (s *TokenService) Verify(tokenString string) (*DocumentClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims DocumentClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Scope == "" {
		return nil, fmt.Errorf("invalid token: missing scope")
	}
	return &claims, nil
}
