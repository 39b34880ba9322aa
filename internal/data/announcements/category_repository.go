package announcements

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "announcements/app/internal/domain/announcements"
)

// CategoryRepository persists categories using a Gorm connection.
type CategoryRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ domain.CategoryStore = (*CategoryRepository)(nil)

// NewCategoryRepository constructs a Gorm-backed category store.
func NewCategoryRepository(db *gorm.DB, logger *logrus.Logger) (*CategoryRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &CategoryRepository{db: db, logger: logger}, nil
}

// CreateCategory stores a category keyed by the slug derived from title.
func (r *CategoryRepository) CreateCategory(ctx context.Context, title string) (domain.Category, error) {
	trimmed := strings.TrimSpace(title)
	slug := domain.CategorySlug(trimmed)
	if slug == "" {
		return domain.Category{}, eris.Wrapf(domain.ErrValidation, "category title %q yields an empty slug", title)
	}

	category := domain.Category{Slug: slug, Title: trimmed}
	record := categoryToRecord(category)

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if classifyConstraint(err) == constraintUnique {
			return domain.Category{}, eris.Wrapf(domain.ErrDuplicateCategory, "slug %s", slug)
		}
		logError(r.logger, logrus.Fields{"slug": slug}, err, "creating category")
		return domain.Category{}, eris.Wrapf(constraintViolation(err), "creating category: %s", slug)
	}

	return category, nil
}

// ListCategories returns every category ordered by slug.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var records []CategoryRecord

	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&records).Error; err != nil {
		logError(r.logger, nil, err, "listing categories")
		return nil, eris.Wrap(err, "listing categories")
	}

	categories := make([]domain.Category, 0, len(records))
	for _, record := range records {
		categories = append(categories, categoryFromRecord(record))
	}

	return categories, nil
}

// CategoryBySlug returns the category for slug or domain.ErrNotFound.
func (r *CategoryRepository) CategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return domain.Category{}, eris.Wrap(domain.ErrValidation, "category slug is required")
	}

	var record CategoryRecord
	err := r.db.WithContext(ctx).Where("slug = ?", trimmed).Take(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, eris.Wrapf(domain.ErrNotFound, "category %s", trimmed)
		}
		logError(r.logger, logrus.Fields{"slug": trimmed}, err, "fetching category by slug")
		return domain.Category{}, eris.Wrapf(err, "fetching category: %s", trimmed)
	}

	return categoryFromRecord(record), nil
}

// logError traces a store failure at debug level. The service that receives
// the returned error records it once at error level.
func logError(logger *logrus.Logger, fields logrus.Fields, err error, message string) {
	if logger == nil || err == nil {
		return
	}

	entry := logger.WithFields(logrus.Fields{"component": "announcements.store", "error": err.Error()})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Debug(message)
}
