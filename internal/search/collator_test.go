package search

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"announcements/app/internal/domain/announcements"
)

func TestNewCollatorRequiresLister(t *testing.T) {
	t.Parallel()

	if _, err := NewCollator(nil, nil); err == nil {
		t.Fatalf("expected error when lister is nil")
	}
}

func TestCollectPagesUntilEmpty(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		lister.items = append(lister.items, announcements.Announcement{
			ID:        fmt.Sprintf("id-%03d", i),
			Title:     fmt.Sprintf("Announcement %d", i),
			Excerpt:   "excerpt",
			Body:      "body",
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}

	collator, err := NewCollator(lister, silentLogger())
	if err != nil {
		t.Fatalf("NewCollator returned error: %v", err)
	}

	documents, err := collator.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if len(documents) != 120 {
		t.Fatalf("expected 120 documents, got %d", len(documents))
	}
	if documents[0].Location != "/announcements/view/id-000" || documents[119].Location != "/announcements/view/id-119" {
		t.Fatalf("unexpected document order: first %q last %q", documents[0].Location, documents[119].Location)
	}

	expectedPages := []int{1, 2, 3, 4}
	if len(lister.pages) != len(expectedPages) {
		t.Fatalf("expected pages %v to be requested, got %v", expectedPages, lister.pages)
	}
	for idx, page := range expectedPages {
		if lister.pages[idx] != page {
			t.Fatalf("expected pages %v to be requested, got %v", expectedPages, lister.pages)
		}
	}
	if lister.maxes[0] != 50 {
		t.Fatalf("expected page size 50, got %d", lister.maxes[0])
	}
}

func TestCollectEmptyFeed(t *testing.T) {
	t.Parallel()

	collator, err := NewCollator(&stubLister{}, nil)
	if err != nil {
		t.Fatalf("NewCollator returned error: %v", err)
	}

	documents, err := collator.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if documents == nil || len(documents) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", documents)
	}
}

func TestCollectPropagatesListerError(t *testing.T) {
	t.Parallel()

	collator, err := NewCollator(&stubLister{err: eris.New("database is locked")}, nil)
	if err != nil {
		t.Fatalf("NewCollator returned error: %v", err)
	}

	if _, err := collator.Collect(context.Background()); err == nil {
		t.Fatalf("expected lister error to propagate")
	}
}

func TestDocumentRendersMarkdownAsText(t *testing.T) {
	t.Parallel()

	collator, err := NewCollator(&stubLister{}, nil)
	if err != nil {
		t.Fatalf("NewCollator returned error: %v", err)
	}

	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	document, err := collator.Document(announcements.Announcement{
		ID:        "abc",
		Title:     "Maintenance",
		Excerpt:   "Tonight",
		Body:      "# Downtime\n\nWe will be **down** tonight & tomorrow.\n\n<script>alert(1)</script>",
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Document returned error: %v", err)
	}

	if document.Text != "Downtime We will be down tonight & tomorrow." {
		t.Fatalf("unexpected text %q", document.Text)
	}
	if document.Title != "Maintenance" || document.Excerpt != "Tonight" {
		t.Fatalf("unexpected document %#v", document)
	}
	if !document.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %s, got %s", created, document.CreatedAt)
	}
	if document.Location != "/announcements/view/abc" {
		t.Fatalf("unexpected location %q", document.Location)
	}
}

type stubLister struct {
	items []announcements.Announcement
	err   error
	pages []int
	maxes []int
}

func (s *stubLister) ListAnnouncements(_ context.Context, filter announcements.ListFilter) (announcements.List, error) {
	s.pages = append(s.pages, filter.Page)
	s.maxes = append(s.maxes, filter.Max)
	if s.err != nil {
		return announcements.List{}, s.err
	}

	start := filter.Offset()
	if start > len(s.items) {
		start = len(s.items)
	}
	end := start + filter.Max
	if end > len(s.items) {
		end = len(s.items)
	}

	return announcements.List{Count: int64(len(s.items)), Results: s.items[start:end]}, nil
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
