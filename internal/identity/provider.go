package identity

import (
	"fmt"
	"net/http"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/linkboard/linkboard/internal/domain"
)

// Provider resolves the caller identity from a bearer token. An absent
// or invalid token yields a nil identity: anonymous access is a valid
// state (public lists), not an error.
type Provider struct {
	secret []byte
}

// NewProvider creates a provider verifying HS256 tokens with secret.
func NewProvider(secret string) *Provider {
	return &Provider{secret: []byte(secret)}
}

// FromRequest extracts and verifies the Authorization bearer token.
func (p *Provider) FromRequest(r *http.Request) *domain.Identity {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	id, err := p.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return id
}

// Parse verifies a token string and maps its claims to an identity.
func (p *Provider) Parse(tokenStr string) (*domain.Identity, error) {
	token, err := gojwt.Parse(tokenStr, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	id := &domain.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		id.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if id.ID == "" {
		return nil, fmt.Errorf("token carries no subject")
	}
	return id, nil
}

// Sign issues a token for an identity. Used by tests and provisioning
// tooling; the product's auth service is the real issuer.
func (p *Provider) Sign(id domain.Identity) (string, error) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub":   id.ID,
		"email": id.Email,
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
