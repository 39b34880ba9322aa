package announcements

import (
	"math"
	"strings"
	"time"
)

// DefaultPageSize applies when a list request carries no explicit maximum.
const DefaultPageSize = 10

// Type classifies how an announcement is presented.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// ParseType normalises raw into a Type. An empty value yields TypeInfo.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TypeInfo:
		return TypeInfo, nil
	case TypeWarning:
		return TypeWarning, nil
	case TypeError:
		return TypeError, nil
	default:
		return "", validationErrorf("unknown announcement type %q", raw)
	}
}

// Category groups announcements. Slug is the stable key.
type Category struct {
	Slug  string
	Title string
}

// Announcement is a published, timestamped message.
type Announcement struct {
	ID        string
	Publisher string
	Title     string
	Excerpt   string
	Body      string
	Category  *Category
	Sticky    bool
	Type      Type
	CreatedAt time.Time
}

// AnnouncementInput carries the user editable fields of an announcement.
// Category holds a category slug; empty means uncategorised.
type AnnouncementInput struct {
	Publisher string
	Title     string
	Excerpt   string
	Body      string
	Category  string
	Sticky    bool
	Type      Type
}

// ListFilter narrows and pages a list request.
type ListFilter struct {
	Max         int
	Page        int
	Category    string
	StickyFirst bool
}

// Normalize applies the default page size and first page.
func (f ListFilter) Normalize() ListFilter {
	if f.Max <= 0 {
		f.Max = DefaultPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// Offset returns the number of rows that precede the requested page. A page
// whose offset does not fit in an int saturates to math.MaxInt, which lies past
// the end of any result set.
func (f ListFilter) Offset() int {
	n := f.Normalize()
	if n.Page-1 > math.MaxInt/n.Max {
		return math.MaxInt
	}
	return (n.Page - 1) * n.Max
}

// List is one page of announcements plus the size of the full filtered set.
type List struct {
	Count   int64
	Results []Announcement
}

// TotalPages reports how many pages of size max cover count rows.
func TotalPages(count int64, max int) int {
	if max <= 0 {
		max = DefaultPageSize
	}
	if count <= 0 {
		return 0
	}
	return int((count + int64(max) - 1) / int64(max))
}
