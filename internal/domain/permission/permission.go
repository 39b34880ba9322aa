package permission

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/sirupsen/logrus"
)

// Permission names an action guarded by the authorization oracle.
type Permission string

const (
	AnnouncementCreate Permission = "announcement.entity.create"
	AnnouncementUpdate Permission = "announcement.entity.update"
	AnnouncementDelete Permission = "announcement.entity.delete"
	CategoryCreate     Permission = "announcement.category.create"
)

// Decision is the oracle's answer for one permission check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Authorizer decides whether the bearer of token may perform permission.
type Authorizer interface {
	Authorize(ctx context.Context, token string, permission Permission) (Decision, error)
}

// StaticAuthorizer allows requests that present one of a fixed set of tokens.
// With no tokens configured every request is allowed.
type StaticAuthorizer struct {
	tokens []string
}

var _ Authorizer = (*StaticAuthorizer)(nil)

// NewStaticAuthorizer builds an authorizer from tokens. Blank entries are ignored.
func NewStaticAuthorizer(tokens []string, logger *logrus.Logger) *StaticAuthorizer {
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if len(cleaned) == 0 && logger != nil {
		logger.WithField("component", "permission").Warn("no admin tokens configured; all write requests are allowed")
	}

	return &StaticAuthorizer{tokens: cleaned}
}

// Open reports whether the authorizer allows every request.
func (a *StaticAuthorizer) Open() bool {
	return len(a.tokens) == 0
}

func (a *StaticAuthorizer) Authorize(_ context.Context, token string, _ Permission) (Decision, error) {
	if a.Open() {
		return Allow, nil
	}

	candidate := []byte(strings.TrimSpace(token))
	if len(candidate) == 0 {
		return Deny, nil
	}

	for _, allowed := range a.tokens {
		if subtle.ConstantTimeCompare(candidate, []byte(allowed)) == 1 {
			return Allow, nil
		}
	}

	return Deny, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	trimmed := strings.TrimSpace(header)
	if len(trimmed) < len("bearer ") || !strings.EqualFold(trimmed[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(trimmed[len("bearer "):])
}
