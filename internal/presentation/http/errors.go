package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"announcements/app/internal/domain/announcements"
	"announcements/app/internal/domain/permission"
	applog "announcements/app/internal/platform/log"
)

// toHTTPError maps a service error onto its API status. The service has
// already recorded unexpected errors, so only a request-scoped trace is
// written here before the generic 500.
func (s *Server) toHTTPError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	switch {
	case eris.Is(err, announcements.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case eris.Is(err, announcements.ErrDuplicateCategory):
		return huma.Error409Conflict(err.Error())
	case eris.Is(err, announcements.ErrValidation), eris.Is(err, announcements.ErrCategoryNotFound):
		return huma.Error400BadRequest(err.Error())
	default:
		s.requestEntry(ctx, fields).WithField("error", err.Error()).Debug(message)
		return huma.Error500InternalServerError(message)
	}
}

// authorize asks the oracle about permission for the bearer in header.
func (s *Server) authorize(ctx context.Context, header string, perm permission.Permission) error {
	token := permission.BearerToken(header)

	decision, err := s.authorizer.Authorize(ctx, token, perm)
	if err != nil {
		s.recordError(ctx, err, "authorizing request", logrus.Fields{"permission": string(perm)})
		return huma.Error500InternalServerError("authorization failed")
	}
	if decision == permission.Allow {
		return nil
	}

	if token == "" {
		return huma.Error401Unauthorized("a bearer token is required")
	}
	return huma.Error403Forbidden("not permitted to " + string(perm))
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	s.requestEntry(ctx, fields).WithField("error", err.Error()).Error(message)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

// requestEntry returns a log entry carrying fields and the request id of ctx.
func (s *Server) requestEntry(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	entry := applog.Component(s.logger, "http").WithFields(fields)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}
