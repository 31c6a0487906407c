package notifications

import (
	"sort"
	"strings"
	"time"
)

// Kind is the visual category of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning:
		return true
	}
	return false
}

// Filter selects a read-state projection of the store.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
	FilterRead   Filter = "read"
)

// ParseFilter accepts all, unread and read. An empty value means all.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnread:
		return FilterUnread, nil
	case FilterRead:
		return FilterRead, nil
	}
	return "", ErrInvalidInput
}

// Record is one notification owned by a user.
type Record struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Kind       Kind       `json:"kind"`
	CreatedAt  time.Time  `json:"createdAt"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	TargetLink string     `json:"targetLink,omitempty"`
}

// View is a filtered projection together with the unfiltered unread total.
type View struct {
	Filter      Filter   `json:"filter"`
	Items       []Record `json:"items"`
	UnreadCount int      `json:"unreadCount"`
	Version     uint64   `json:"version"`
}

func project(records []Record, filter Filter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		switch filter {
		case FilterUnread:
			if r.Read {
				continue
			}
		case FilterRead:
			if !r.Read {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func countUnread(records []Record) int {
	n := 0
	for _, r := range records {
		if !r.Read {
			n++
		}
	}
	return n
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func clone(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
