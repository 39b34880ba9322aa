package announcements

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"announcements/app/internal/data/migrations"
)

// Context groups the stores that share one connection pool.
type Context struct {
	Announcements *AnnouncementRepository
	Categories    *CategoryRepository
}

// Initialize migrates the schema and only then builds the stores. No store is
// returned unless every migration was applied.
func Initialize(ctx context.Context, db *gorm.DB, logger *logrus.Logger) (*Context, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	if err := migrations.Migrate(ctx, db, logger); err != nil {
		return nil, eris.Wrap(err, "migrating announcements schema")
	}

	announcementStore, err := NewAnnouncementRepository(db, logger)
	if err != nil {
		return nil, eris.Wrap(err, "creating announcement repository")
	}

	categoryStore, err := NewCategoryRepository(db, logger)
	if err != nil {
		return nil, eris.Wrap(err, "creating category repository")
	}

	return &Context{
		Announcements: announcementStore,
		Categories:    categoryStore,
	}, nil
}
