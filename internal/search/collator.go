package search

import (
	"bytes"
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"announcements/app/internal/domain/announcements"
	applog "announcements/app/internal/platform/log"
)

const (
	// DocumentType identifies announcement documents in a search index.
	DocumentType = "announcements"
	pageSize     = 50
	locationBase = "/announcements/view/"
)

// Lister is the read side the collator pages through.
type Lister interface {
	ListAnnouncements(ctx context.Context, filter announcements.ListFilter) (announcements.List, error)
}

// Document is an indexable representation of an announcement.
type Document struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"createdAt"`
	Location  string    `json:"location"`
}

// Collator turns the announcement feed into search documents.
type Collator struct {
	lister   Lister
	logger   *logrus.Logger
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	pageSize int
}

// NewCollator constructs a collator over lister.
func NewCollator(lister Lister, logger *logrus.Logger) (*Collator, error) {
	if lister == nil {
		return nil, eris.New("announcement lister is required")
	}

	return &Collator{
		lister:   lister,
		logger:   logger,
		markdown: goldmark.New(),
		policy:   bluemonday.StrictPolicy(),
		pageSize: pageSize,
	}, nil
}

// Each requests successive pages until one comes back empty and hands every
// document to fn in feed order. It stops at the first error.
func (c *Collator) Each(ctx context.Context, fn func(Document) error) error {
	c.log(logrus.InfoLevel, nil, "started indexing announcements")

	indexed := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "indexing announcements")
		}

		list, err := c.lister.ListAnnouncements(ctx, announcements.ListFilter{Max: c.pageSize, Page: page})
		if err != nil {
			return eris.Wrapf(err, "fetching announcements page %d", page)
		}

		c.log(logrus.DebugLevel, logrus.Fields{"page": page, "results": len(list.Results)}, "fetched announcements page")

		if len(list.Results) == 0 {
			break
		}

		for _, announcement := range list.Results {
			document, err := c.Document(announcement)
			if err != nil {
				return err
			}
			if err := fn(document); err != nil {
				return err
			}
			indexed++
		}
	}

	c.log(logrus.InfoLevel, logrus.Fields{"documents": indexed}, "finished indexing announcements")
	return nil
}

// Collect gathers every document into a slice.
func (c *Collator) Collect(ctx context.Context) ([]Document, error) {
	documents := make([]Document, 0)
	err := c.Each(ctx, func(document Document) error {
		documents = append(documents, document)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// Document maps one announcement to its indexable form.
func (c *Collator) Document(a announcements.Announcement) (Document, error) {
	text, err := c.plainText(a.Body)
	if err != nil {
		return Document{}, eris.Wrapf(err, "rendering body of announcement %s", a.ID)
	}

	return Document{
		Title:     a.Title,
		Text:      text,
		Excerpt:   a.Excerpt,
		CreatedAt: a.CreatedAt,
		Location:  Location(a.ID),
	}, nil
}

// Location is the frontend path of an announcement.
func Location(id string) string {
	return locationBase + id
}

func (c *Collator) plainText(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", eris.Wrap(err, "converting markdown")
	}

	stripped := html.UnescapeString(c.policy.Sanitize(buf.String()))
	return strings.Join(strings.Fields(stripped), " "), nil
}

func (c *Collator) log(level logrus.Level, fields logrus.Fields, message string) {
	if c.logger == nil {
		return
	}
	entry := applog.Component(c.logger, "search.collator")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Log(level, message)
}
