package announcements

import "time"

// IsUnseen reports whether a reader whose last visit was lastSeen has not yet
// seen a. Sticky announcements are always unseen. A zero lastSeen means the
// reader has never visited.
func IsUnseen(a Announcement, lastSeen time.Time) bool {
	if a.Sticky || lastSeen.IsZero() {
		return true
	}
	return a.CreatedAt.After(lastSeen)
}

// FilterUnseen keeps the announcements IsUnseen accepts, preserving order.
func FilterUnseen(items []Announcement, lastSeen time.Time) []Announcement {
	unseen := make([]Announcement, 0, len(items))
	for _, item := range items {
		if IsUnseen(item, lastSeen) {
			unseen = append(unseen, item)
		}
	}
	return unseen
}
