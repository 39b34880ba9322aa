package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"announcements/app/internal/config"
	store "announcements/app/internal/data/announcements"
	"announcements/app/internal/data/database"
	"announcements/app/internal/domain/announcements"
	"announcements/app/internal/domain/permission"
	presentationhttp "announcements/app/internal/presentation/http"
	"announcements/app/internal/search"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Service    announcements.Service
	Collator   *search.Collator
	HTTPServer *presentationhttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// Build composes the announcement layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	db, err := database.Open(database.Options{Path: deps.Config.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	stores, err := store.Initialize(ctx, db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising announcement stores"))
	}

	service, err := announcements.NewService(announcements.ServiceOptions{
		Announcements: stores.Announcements,
		Categories:    stores.Categories,
		PageSize:      deps.Config.DefaultPageSize,
		Logger:        deps.Logger,
		SentryHub:     deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating announcement service"))
	}

	collator, err := search.NewCollator(service, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating search collator"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		Service:    service,
		Authorizer: permission.NewStaticAuthorizer(deps.Config.AdminTokens, deps.Logger),
		Collator:   collator,
		Database:   db,
		Logger:     deps.Logger,
		SentryHub:  deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		Service:    service,
		Collator:   collator,
		HTTPServer: httpServer,
		Database:   db,
		Cleanup:    cleanup,
	}, nil
}
