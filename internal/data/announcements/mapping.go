package announcements

import (
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	domain "announcements/app/internal/domain/announcements"
	"announcements/app/internal/platform/timestamp"
)

// toStorageRow flattens an announcement into its table row. The embedded
// category collapses to its slug; a nil category stores NULL.
func toStorageRow(a domain.Announcement) AnnouncementRecord {
	record := AnnouncementRecord{
		ID:        a.ID,
		Publisher: a.Publisher,
		Title:     a.Title,
		Excerpt:   a.Excerpt,
		Body:      a.Body,
		CreatedAt: timestamp.Encode(a.CreatedAt),
		Sticky:    sql.NullBool{Bool: a.Sticky, Valid: true},
	}

	if a.Category != nil && a.Category.Slug != "" {
		record.CategoryID = sql.NullString{String: a.Category.Slug, Valid: true}
	}

	kind := a.Type
	if kind == "" {
		kind = domain.TypeInfo
	}
	record.Type = sql.NullString{String: string(kind), Valid: true}

	return record
}

// fromStorageRow rebuilds the domain announcement from a joined row. NULL
// optional columns fall back to their defaults, as does an unrecognised type;
// storedTypeError reports the latter.
func fromStorageRow(row announcementRow) (domain.Announcement, error) {
	createdAt, err := timestamp.Decode(row.CreatedAt)
	if err != nil {
		return domain.Announcement{}, eris.Wrapf(err, "announcement %s created_at", row.ID)
	}

	announcement := domain.Announcement{
		ID:        row.ID,
		Publisher: row.Publisher,
		Title:     row.Title,
		Excerpt:   row.Excerpt,
		Body:      row.Body,
		Sticky:    row.Sticky.Valid && row.Sticky.Bool,
		Type:      domain.TypeInfo,
		CreatedAt: createdAt,
	}

	if row.Type.Valid {
		if kind, parseErr := domain.ParseType(row.Type.String); parseErr == nil {
			announcement.Type = kind
		}
	}

	if row.CategoryID.Valid && row.CategoryID.String != "" {
		announcement.Category = &domain.Category{
			Slug:  row.CategoryID.String,
			Title: row.CategoryTitle.String,
		}
	}

	return announcement, nil
}

// storedTypeError returns the parse failure for a type column holding a value
// outside the known set, or nil.
func storedTypeError(row announcementRow) error {
	if !row.Type.Valid {
		return nil
	}
	if _, err := domain.ParseType(row.Type.String); err != nil {
		return eris.Wrapf(err, "announcement %s type", row.ID)
	}
	return nil
}

func categoryToRecord(c domain.Category) CategoryRecord {
	return CategoryRecord{Slug: c.Slug, Title: c.Title}
}

func categoryFromRecord(record CategoryRecord) domain.Category {
	return domain.Category{Slug: record.Slug, Title: record.Title}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
