package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/linkboard/linkboard/internal/domain"
)

func TestSignAndParse(t *testing.T) {
	p := NewProvider("test-secret")

	token, err := p.Sign(domain.Identity{ID: "user-1", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := p.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.ID != "user-1" || id.Email != "owner@example.com" {
		t.Errorf("identity = %+v", id)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewProvider("secret-a").Sign(domain.Identity{ID: "user-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewProvider("secret-b").Parse(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestFromRequest(t *testing.T) {
	p := NewProvider("test-secret")
	token, err := p.Sign(domain.Identity{ID: "user-1", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name      string
		header    string
		anonymous bool
	}{
		{"valid bearer", "Bearer " + token, false},
		{"no header", "", true},
		{"not a bearer", "Basic abc123", true},
		{"garbage token", "Bearer not-a-jwt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/lists/x/updates", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			id := p.FromRequest(r)
			if tt.anonymous && id != nil {
				t.Errorf("expected anonymous, got %+v", id)
			}
			if !tt.anonymous && (id == nil || id.ID != "user-1") {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}
