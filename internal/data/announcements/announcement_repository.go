package announcements

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "announcements/app/internal/domain/announcements"
)

const (
	joinedColumns = "announcements.*, categories.title AS category_title"
	// julianday normalises every accepted layout and offset to one instant;
	// the raw text breaks ties below its resolution for rows in the storage layout.
	createdAtOrder = "julianday(announcements.created_at) DESC, announcements.created_at DESC"
)

// AnnouncementRepository persists announcements using a Gorm connection.
type AnnouncementRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

var _ domain.AnnouncementStore = (*AnnouncementRepository)(nil)

// NewAnnouncementRepository constructs a Gorm-backed announcement store.
func NewAnnouncementRepository(db *gorm.DB, logger *logrus.Logger) (*AnnouncementRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &AnnouncementRepository{
		db:     db,
		logger: logger,
		now:    nowUTC,
		newID:  uuid.NewString,
	}, nil
}

// ListAnnouncements returns one page of announcements, newest first, along with
// the size of the whole filtered set.
func (r *AnnouncementRepository) ListAnnouncements(ctx context.Context, filter domain.ListFilter) (domain.List, error) {
	filter = filter.Normalize()
	fields := logrus.Fields{"category": filter.Category, "page": filter.Page, "max": filter.Max}

	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		logError(r.logger, fields, err, "counting announcements")
		return domain.List{}, eris.Wrap(err, "counting announcements")
	}

	list := domain.List{Count: count, Results: []domain.Announcement{}}
	if count == 0 || int64(filter.Offset()) >= count {
		return list, nil
	}

	query := r.joined(r.filtered(ctx, filter))
	if filter.StickyFirst {
		query = query.Order("COALESCE(announcements.sticky, 0) DESC")
	}

	var rows []announcementRow
	err := query.
		Order(createdAtOrder).
		Order("announcements.id DESC").
		Limit(filter.Max).
		Offset(filter.Offset()).
		Scan(&rows).Error
	if err != nil {
		logError(r.logger, fields, err, "listing announcements")
		return domain.List{}, eris.Wrap(err, "listing announcements")
	}

	results, err := r.fromStorageRows(rows)
	if err != nil {
		logError(r.logger, fields, err, "mapping announcements")
		return domain.List{}, err
	}
	list.Results = results

	return list, nil
}

// AnnouncementByID returns the announcement for id or domain.ErrNotFound.
func (r *AnnouncementRepository) AnnouncementByID(ctx context.Context, id string) (domain.Announcement, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return domain.Announcement{}, eris.Wrap(domain.ErrValidation, "announcement id is required")
	}

	var rows []announcementRow
	err := r.joined(r.db.WithContext(ctx)).
		Where("announcements.id = ?", trimmed).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		logError(r.logger, logrus.Fields{"announcement_id": trimmed}, err, "fetching announcement")
		return domain.Announcement{}, eris.Wrapf(err, "fetching announcement: %s", trimmed)
	}
	if len(rows) == 0 {
		return domain.Announcement{}, eris.Wrapf(domain.ErrNotFound, "announcement %s", trimmed)
	}

	return r.fromStorageRow(rows[0])
}

// InsertAnnouncement stores a new announcement. The id and creation time are
// assigned here; an unknown category slug fails with domain.ErrCategoryNotFound.
func (r *AnnouncementRepository) InsertAnnouncement(ctx context.Context, input domain.AnnouncementInput) (domain.Announcement, error) {
	category, err := r.resolveCategory(ctx, input.Category)
	if err != nil {
		return domain.Announcement{}, err
	}

	announcement := domain.Announcement{
		ID:        r.newID(),
		Publisher: input.Publisher,
		Title:     input.Title,
		Excerpt:   input.Excerpt,
		Body:      input.Body,
		Category:  category,
		Sticky:    input.Sticky,
		Type:      input.Type,
		CreatedAt: r.now().UTC(),
	}
	if announcement.Type == "" {
		announcement.Type = domain.TypeInfo
	}

	record := toStorageRow(announcement)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Announcement{}, r.writeError(err, input.Category, "inserting announcement")
	}

	return announcement, nil
}

// UpdateAnnouncement replaces title, excerpt, body, category, sticky and type.
// The id, creation time and publisher are never changed.
func (r *AnnouncementRepository) UpdateAnnouncement(ctx context.Context, id string, input domain.AnnouncementInput) (domain.Announcement, error) {
	existing, err := r.AnnouncementByID(ctx, id)
	if err != nil {
		return domain.Announcement{}, err
	}

	category, err := r.resolveCategory(ctx, input.Category)
	if err != nil {
		return domain.Announcement{}, err
	}

	updated := existing
	updated.Title = input.Title
	updated.Excerpt = input.Excerpt
	updated.Body = input.Body
	updated.Category = category
	updated.Sticky = input.Sticky
	updated.Type = input.Type
	if updated.Type == "" {
		updated.Type = domain.TypeInfo
	}

	record := toStorageRow(updated)
	result := r.db.WithContext(ctx).
		Model(&AnnouncementRecord{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"title":       record.Title,
			"excerpt":     record.Excerpt,
			"body":        record.Body,
			"category_id": record.CategoryID,
			"sticky":      record.Sticky,
			"type":        record.Type,
		})
	if result.Error != nil {
		return domain.Announcement{}, r.writeError(result.Error, input.Category, "updating announcement")
	}
	if result.RowsAffected == 0 {
		return domain.Announcement{}, eris.Wrapf(domain.ErrNotFound, "announcement %s", existing.ID)
	}

	return updated, nil
}

// DeleteAnnouncementByID removes the row for id, or reports domain.ErrNotFound
// when nothing was removed.
func (r *AnnouncementRepository) DeleteAnnouncementByID(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return eris.Wrap(domain.ErrValidation, "announcement id is required")
	}

	result := r.db.WithContext(ctx).Where("id = ?", trimmed).Delete(&AnnouncementRecord{})
	if result.Error != nil {
		logError(r.logger, logrus.Fields{"announcement_id": trimmed}, result.Error, "deleting announcement")
		return eris.Wrapf(constraintViolation(result.Error), "deleting announcement: %s", trimmed)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(domain.ErrNotFound, "announcement %s", trimmed)
	}

	return nil
}

func (r *AnnouncementRepository) filtered(ctx context.Context, filter domain.ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Table("announcements")
	if filter.Category != "" {
		query = query.Where("announcements.category_id = ?", filter.Category)
	}
	return query
}

func (r *AnnouncementRepository) joined(query *gorm.DB) *gorm.DB {
	return query.
		Table("announcements").
		Select(joinedColumns).
		Joins("LEFT JOIN categories ON categories.slug = announcements.category_id")
}

func (r *AnnouncementRepository) resolveCategory(ctx context.Context, slug string) (*domain.Category, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, nil
	}

	var record CategoryRecord
	err := r.db.WithContext(ctx).Where("slug = ?", trimmed).Take(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(domain.ErrCategoryNotFound, "category %s", trimmed)
		}
		logError(r.logger, logrus.Fields{"category": trimmed}, err, "resolving category")
		return nil, eris.Wrapf(err, "resolving category: %s", trimmed)
	}

	category := categoryFromRecord(record)
	return &category, nil
}

func (r *AnnouncementRepository) writeError(err error, category, message string) error {
	fields := logrus.Fields{"category": category}
	if classifyConstraint(err) == constraintForeignKey {
		return eris.Wrapf(domain.ErrCategoryNotFound, "category %s", category)
	}

	logError(r.logger, fields, err, message)
	return eris.Wrap(constraintViolation(err), message)
}

func (r *AnnouncementRepository) fromStorageRow(row announcementRow) (domain.Announcement, error) {
	if err := storedTypeError(row); err != nil && r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"component":       "announcements.store",
			"announcement_id": row.ID,
			"type":            row.Type.String,
		}).Warn("unknown stored announcement type, reading as info")
	}
	return fromStorageRow(row)
}

func (r *AnnouncementRepository) fromStorageRows(rows []announcementRow) ([]domain.Announcement, error) {
	results := make([]domain.Announcement, 0, len(rows))
	for _, row := range rows {
		announcement, err := r.fromStorageRow(row)
		if err != nil {
			return nil, err
		}
		results = append(results, announcement)
	}
	return results, nil
}
