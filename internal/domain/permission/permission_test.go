package permission

import (
	"context"
	"testing"
)

func TestStaticAuthorizerWithoutTokensAllows(t *testing.T) {
	t.Parallel()

	authorizer := NewStaticAuthorizer([]string{"", "  "}, nil)
	if !authorizer.Open() {
		t.Fatalf("expected authorizer without tokens to be open")
	}

	decision, err := authorizer.Authorize(context.Background(), "", AnnouncementDelete)
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if decision != Allow {
		t.Fatalf("expected Allow, got %v", decision)
	}
}

func TestStaticAuthorizerMatchesTokens(t *testing.T) {
	t.Parallel()

	authorizer := NewStaticAuthorizer([]string{"alpha", " beta "}, nil)
	ctx := context.Background()

	cases := map[string]Decision{
		"alpha": Allow,
		"beta":  Allow,
		"gamma": Deny,
		"":      Deny,
	}
	for token, expected := range cases {
		decision, err := authorizer.Authorize(ctx, token, AnnouncementCreate)
		if err != nil {
			t.Fatalf("Authorize(%q) returned error: %v", token, err)
		}
		if decision != expected {
			t.Fatalf("Authorize(%q) = %v, expected %v", token, decision, expected)
		}
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"":              "",
		"Bearer":        "",
		"BEARER xyz123": "xyz123",
	}
	for header, expected := range cases {
		if got := BearerToken(header); got != expected {
			t.Fatalf("BearerToken(%q) = %q, expected %q", header, got, expected)
		}
	}
}
