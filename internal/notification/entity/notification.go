package entity

import (
	"time"

	"github.com/samber/lo"
)

const (
	// MaxEntries is the number of notifications kept per owner.
	MaxEntries = 50
	// DedupWindow is how long an entry blocks another with the same category and title.
	DedupWindow = 5 * time.Minute
	// Retention is how long non-persistent entries survive a load.
	Retention = 7 * 24 * time.Hour
)

// Notification is one entry of an owner's list. The list is ordered newest first.
type Notification struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
	Category    Category  `json:"category"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	Persistent  bool      `json:"persistent,omitempty"`
}

// FindDuplicate returns the entry with the same category and title created
// within DedupWindow before now.
func FindDuplicate(list []Notification, category Category, title string, now time.Time) (Notification, bool) {
	return lo.Find(list, func(n Notification) bool {
		return n.Category == category && n.Title == title && now.Sub(n.Timestamp) < DedupWindow
	})
}

// Add prepends n unless a duplicate exists. The result never exceeds MaxEntries.
func Add(list []Notification, n Notification) ([]Notification, bool) {
	if _, dup := FindDuplicate(list, n.Category, n.Title, n.Timestamp); dup {
		return Truncate(list), false
	}

	out := make([]Notification, 0, len(list)+1)
	out = append(out, n)
	out = append(out, list...)

	return Truncate(out), true
}

// Truncate keeps the first MaxEntries entries.
func Truncate(list []Notification) []Notification {
	if len(list) <= MaxEntries {
		return list
	}
	return list[:MaxEntries]
}

// Prune drops non-persistent entries older than Retention.
func Prune(list []Notification, now time.Time) []Notification {
	return lo.Filter(list, func(n Notification, _ int) bool {
		return n.Persistent || now.Sub(n.Timestamp) <= Retention
	})
}

// MarkRead flags the entry with id as read. It reports whether id was found.
func MarkRead(list []Notification, id string) ([]Notification, bool) {
	found := false
	out := lo.Map(list, func(n Notification, _ int) Notification {
		if n.ID == id {
			found = true
			n.Read = true
		}
		return n
	})
	return out, found
}

func MarkAllRead(list []Notification) []Notification {
	return lo.Map(list, func(n Notification, _ int) Notification {
		n.Read = true
		return n
	})
}

// Remove drops the entry with id. It reports whether id was found.
func Remove(list []Notification, id string) ([]Notification, bool) {
	out := lo.Reject(list, func(n Notification, _ int) bool { return n.ID == id })
	return out, len(out) != len(list)
}

func UnreadCount(list []Notification) int {
	return lo.CountBy(list, func(n Notification) bool { return !n.Read })
}
