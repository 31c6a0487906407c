package notifications

import (
	"time"
)

// DemoSeed returns the mock-mode notifications for a new user: seven records, three unread.
func DemoSeed(userID string, now time.Time) []Record {
	at := func(ago time.Duration) time.Time { return now.Add(-ago) }
	readAt := func(ago time.Duration) *time.Time { t := now.Add(-ago); return &t }
	return []Record{
		{
			ID:         userID + "-n1",
			Title:      "Appointment confirmed",
			Message:    "Your career advising session is booked for Thursday at 10:00.",
			Kind:       KindSuccess,
			CreatedAt:  at(15 * time.Minute),
			TargetLink: "/appointments",
		},
		{
			ID:         userID + "-n2",
			Title:      "New internship matches",
			Message:    "Three new offers match your profile.",
			Kind:       KindInfo,
			CreatedAt:  at(2 * time.Hour),
			TargetLink: "/matching",
		},
		{
			ID:         userID + "-n3",
			Title:      "CV review pending",
			Message:    "Upload an updated CV before Friday to keep your matches active.",
			Kind:       KindWarning,
			CreatedAt:  at(5 * time.Hour),
			TargetLink: "/cv",
		},
		{
			ID:        userID + "-n4",
			Title:     "Profile completed",
			Message:   "Your profile is now visible to partner companies.",
			Kind:      KindSuccess,
			CreatedAt: at(26 * time.Hour),
			Read:      true,
			ReadAt:    readAt(25 * time.Hour),
		},
		{
			ID:         userID + "-n5",
			Title:      "Journey milestone reached",
			Message:    "You finished the \"Explore career paths\" step.",
			Kind:       KindInfo,
			CreatedAt:  at(3 * 24 * time.Hour),
			Read:       true,
			ReadAt:     readAt(3 * 24 * time.Hour),
			TargetLink: "/journey",
		},
		{
			ID:        userID + "-n6",
			Title:     "Workshop reminder",
			Message:   "Interview skills workshop starts next Monday.",
			Kind:      KindInfo,
			CreatedAt: at(5 * 24 * time.Hour),
			Read:      true,
			ReadAt:    readAt(4 * 24 * time.Hour),
		},
		{
			ID:        userID + "-n7",
			Title:     "Welcome",
			Message:   "Welcome to your student services dashboard.",
			Kind:      KindInfo,
			CreatedAt: at(14 * 24 * time.Hour),
			Read:      true,
			ReadAt:    readAt(14 * 24 * time.Hour),
		},
	}
}
