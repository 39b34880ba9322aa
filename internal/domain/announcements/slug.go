package announcements

import "github.com/gosimple/slug"

// CategorySlug derives the stable category key from a title. The same title
// always yields the same slug.
func CategorySlug(title string) string {
	return slug.Make(title)
}
