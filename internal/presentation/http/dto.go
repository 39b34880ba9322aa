package http

import (
	"time"

	"announcements/app/internal/domain/announcements"
)

type categoryBody struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type announcementBody struct {
	ID        string        `json:"id"`
	Publisher string        `json:"publisher"`
	Title     string        `json:"title"`
	Excerpt   string        `json:"excerpt"`
	Body      string        `json:"body"`
	Category  *categoryBody `json:"category,omitempty"`
	Sticky    bool          `json:"sticky"`
	Type      string        `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
}

type listBody struct {
	Count   int64              `json:"count"`
	Results []announcementBody `json:"results"`
}

// announcementPayload is the writable part of an announcement. Validation is
// left to the service so callers see the same messages on every transport.
type announcementPayload struct {
	Publisher string `json:"publisher,omitempty" doc:"Author reference; ignored on update"`
	Title     string `json:"title,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	Body      string `json:"body,omitempty" doc:"Markdown body"`
	Category  string `json:"category,omitempty" doc:"Category slug"`
	Sticky    bool   `json:"sticky,omitempty"`
	Type      string `json:"type,omitempty" doc:"info, warning or error"`
}

func (p announcementPayload) input() announcements.AnnouncementInput {
	return announcements.AnnouncementInput{
		Publisher: p.Publisher,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Body:      p.Body,
		Category:  p.Category,
		Sticky:    p.Sticky,
		Type:      announcements.Type(p.Type),
	}
}

func toCategoryBody(category announcements.Category) categoryBody {
	return categoryBody{Slug: category.Slug, Title: category.Title}
}

func toAnnouncementBody(a announcements.Announcement) announcementBody {
	body := announcementBody{
		ID:        a.ID,
		Publisher: a.Publisher,
		Title:     a.Title,
		Excerpt:   a.Excerpt,
		Body:      a.Body,
		Sticky:    a.Sticky,
		Type:      string(a.Type),
		CreatedAt: a.CreatedAt,
	}
	if a.Category != nil {
		category := toCategoryBody(*a.Category)
		body.Category = &category
	}
	return body
}

func toAnnouncementBodies(items []announcements.Announcement) []announcementBody {
	bodies := make([]announcementBody, 0, len(items))
	for _, item := range items {
		bodies = append(bodies, toAnnouncementBody(item))
	}
	return bodies
}
