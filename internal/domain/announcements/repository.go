package announcements

import "context"

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, title string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryBySlug(ctx context.Context, slug string) (Category, error)
}

// AnnouncementStore persists announcements.
type AnnouncementStore interface {
	ListAnnouncements(ctx context.Context, filter ListFilter) (List, error)
	AnnouncementByID(ctx context.Context, id string) (Announcement, error)
	InsertAnnouncement(ctx context.Context, input AnnouncementInput) (Announcement, error)
	UpdateAnnouncement(ctx context.Context, id string, input AnnouncementInput) (Announcement, error)
	DeleteAnnouncementByID(ctx context.Context, id string) error
}
