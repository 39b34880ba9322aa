package migrations

import (
	"context"
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"announcements/app/internal/data/database"
)

//go:embed sql/*.sql
var scripts embed.FS

// Migrate applies every pending versioned migration in order. Already applied
// versions are skipped, so running it against a current schema is a no-op.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	logFields := logrus.Fields{"component": "announcements.migrate"}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return eris.Wrap(err, "reading schema version")
	}
	if logger != nil {
		logger.WithFields(logFields).WithField("version", current).Info("applying announcements schema")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("announcements schema migration failed")
		}
		return eris.Wrap(err, "applying announcements migrations")
	}

	if logger != nil {
		for _, result := range results {
			entry := logger.WithFields(logFields).WithField("duration_ms", result.Duration.Milliseconds())
			if result.Source != nil {
				entry = entry.WithFields(logrus.Fields{
					"version": result.Source.Version,
					"script":  result.Source.Path,
				})
			}
			entry.Info("migration applied")
		}
		logger.WithFields(logFields).WithField("applied", len(results)).Info("announcements schema migration complete")
	}

	return nil
}

// Version reports the highest applied migration version.
func Version(ctx context.Context, db *gorm.DB) (int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "reading schema version")
	}

	return version, nil
}

func newProvider(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := database.SQLDB(db)
	if err != nil {
		return nil, err
	}

	fsys, err := fs.Sub(scripts, "sql")
	if err != nil {
		return nil, eris.Wrap(err, "opening embedded migrations")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, fsys)
	if err != nil {
		return nil, eris.Wrap(err, "creating migration provider")
	}

	return provider, nil
}
