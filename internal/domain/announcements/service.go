package announcements

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the announcement operations exposed to transports and indexers.
type Service interface {
	ListAnnouncements(ctx context.Context, filter ListFilter) (List, error)
	GetAnnouncement(ctx context.Context, id string) (Announcement, error)
	CreateAnnouncement(ctx context.Context, input AnnouncementInput) (Announcement, error)
	UpdateAnnouncement(ctx context.Context, id string, input AnnouncementInput) (Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, title string) (Category, error)
	Recent(ctx context.Context, limit int) ([]Announcement, error)
	Unseen(ctx context.Context, lastSeen time.Time, limit int) ([]Announcement, error)
}

type service struct {
	announcements AnnouncementStore
	categories    CategoryStore
	pageSize      int
	logger        *logrus.Logger
	sentryHub     *sentry.Hub
}

var _ Service = (*service)(nil)

// ServiceOptions configures NewService.
type ServiceOptions struct {
	Announcements AnnouncementStore
	Categories    CategoryStore
	PageSize      int
	Logger        *logrus.Logger
	SentryHub     *sentry.Hub
}

// NewService wires the announcement service with its stores.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Announcements == nil {
		return nil, eris.New("announcement store is required")
	}
	if opts.Categories == nil {
		return nil, eris.New("category store is required")
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &service{
		announcements: opts.Announcements,
		categories:    opts.Categories,
		pageSize:      pageSize,
		logger:        opts.Logger,
		sentryHub:     opts.SentryHub,
	}, nil
}

func (s *service) ListAnnouncements(ctx context.Context, filter ListFilter) (List, error) {
	if filter.Max <= 0 {
		filter.Max = s.pageSize
	}

	list, err := s.announcements.ListAnnouncements(ctx, filter.Normalize())
	if err != nil {
		s.recordError(logrus.Fields{"category": filter.Category, "page": filter.Page}, err, "listing announcements")
		return List{}, eris.Wrap(err, "listing announcements")
	}

	return list, nil
}

func (s *service) GetAnnouncement(ctx context.Context, id string) (Announcement, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Announcement{}, validationErrorf("announcement id is required")
	}

	announcement, err := s.announcements.AnnouncementByID(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"announcement_id": trimmed}, err, "fetching announcement")
		return Announcement{}, eris.Wrapf(err, "fetching announcement: %s", trimmed)
	}

	return announcement, nil
}

func (s *service) CreateAnnouncement(ctx context.Context, input AnnouncementInput) (Announcement, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return Announcement{}, err
	}
	if normalized.Publisher == "" {
		return Announcement{}, validationErrorf("publisher is required")
	}

	announcement, err := s.announcements.InsertAnnouncement(ctx, normalized)
	if err != nil {
		s.recordError(logrus.Fields{"category": normalized.Category}, err, "creating announcement")
		return Announcement{}, eris.Wrap(err, "creating announcement")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"announcement_id": announcement.ID,
			"publisher":       announcement.Publisher,
		}).Info("announcement created")
	}

	return announcement, nil
}

func (s *service) UpdateAnnouncement(ctx context.Context, id string, input AnnouncementInput) (Announcement, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Announcement{}, validationErrorf("announcement id is required")
	}

	normalized, err := normalizeInput(input)
	if err != nil {
		return Announcement{}, err
	}

	announcement, err := s.announcements.UpdateAnnouncement(ctx, trimmed, normalized)
	if err != nil {
		s.recordError(logrus.Fields{"announcement_id": trimmed}, err, "updating announcement")
		return Announcement{}, eris.Wrapf(err, "updating announcement: %s", trimmed)
	}

	return announcement, nil
}

func (s *service) DeleteAnnouncement(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return validationErrorf("announcement id is required")
	}

	if err := s.announcements.DeleteAnnouncementByID(ctx, trimmed); err != nil {
		s.recordError(logrus.Fields{"announcement_id": trimmed}, err, "deleting announcement")
		return eris.Wrapf(err, "deleting announcement: %s", trimmed)
	}

	if s.logger != nil {
		s.logger.WithField("announcement_id", trimmed).Info("announcement deleted")
	}

	return nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		s.recordError(nil, err, "listing categories")
		return nil, eris.Wrap(err, "listing categories")
	}

	return categories, nil
}

func (s *service) CreateCategory(ctx context.Context, title string) (Category, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return Category{}, validationErrorf("category title is required")
	}

	category, err := s.categories.CreateCategory(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"title": trimmed}, err, "creating category")
		return Category{}, eris.Wrapf(err, "creating category: %s", trimmed)
	}

	return category, nil
}

// Recent returns the newest announcements, the first page of the default listing.
func (s *service) Recent(ctx context.Context, limit int) ([]Announcement, error) {
	if limit <= 0 {
		limit = s.pageSize
	}

	list, err := s.ListAnnouncements(ctx, ListFilter{Max: limit, Page: 1})
	if err != nil {
		return nil, err
	}

	return list.Results, nil
}

func (s *service) Unseen(ctx context.Context, lastSeen time.Time, limit int) ([]Announcement, error) {
	recent, err := s.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	return FilterUnseen(recent, lastSeen), nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	expected := IsExpected(err)

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		if expected {
			entry.Debug(message)
		} else {
			entry.Error(message)
		}
	}

	if s.sentryHub != nil && !expected {
		s.sentryHub.CaptureException(err)
	}
}

// IsExpected reports whether err is a caller mistake rather than a failure.
func IsExpected(err error) bool {
	return eris.Is(err, ErrNotFound) ||
		eris.Is(err, ErrValidation) ||
		eris.Is(err, ErrCategoryNotFound) ||
		eris.Is(err, ErrDuplicateCategory)
}

func normalizeInput(input AnnouncementInput) (AnnouncementInput, error) {
	normalized := AnnouncementInput{
		Publisher: strings.TrimSpace(input.Publisher),
		Title:     strings.TrimSpace(input.Title),
		Excerpt:   strings.TrimSpace(input.Excerpt),
		Body:      input.Body,
		Category:  strings.TrimSpace(input.Category),
		Sticky:    input.Sticky,
	}

	if normalized.Title == "" {
		return AnnouncementInput{}, validationErrorf("title is required")
	}

	kind, err := ParseType(string(input.Type))
	if err != nil {
		return AnnouncementInput{}, err
	}
	normalized.Type = kind

	return normalized, nil
}
