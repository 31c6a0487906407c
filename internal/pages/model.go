package pages

import (
	"strings"
	"time"
)

// Page names a dashboard page backed by one resource.
type Page string

const (
	PageProfile      Page = "profile"
	PageJourney      Page = "journey"
	PageMatching     Page = "matching"
	PageAppointments Page = "appointments"
)

// All lists every page in navigation order.
var All = []Page{PageProfile, PageJourney, PageMatching, PageAppointments}

// ParsePage resolves a path segment to a Page.
func ParsePage(raw string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range All {
		if p == known {
			return p, nil
		}
	}
	return "", ErrUnknownPage
}

// Profile is the student's personal record.
type Profile struct {
	UserID    string    `json:"userId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Program   string    `json:"program"`
	Year      int       `json:"year"`
	Campus    string    `json:"campus"`
	Skills    []string  `json:"skills"`
	Interests []string  `json:"interests"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StepStatus is the progress of one journey step.
type StepStatus string

const (
	StepDone     StepStatus = "done"
	StepCurrent  StepStatus = "current"
	StepUpcoming StepStatus = "upcoming"
)

// JourneyStep is one milestone of the career journey.
type JourneyStep struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Journey is the ordered list of milestones.
type Journey struct {
	Steps     []JourneyStep `json:"steps"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
}

// Offer is an internship or job matched to the student.
type Offer struct {
	ID       string   `json:"id"`
	Company  string   `json:"company"`
	Title    string   `json:"title"`
	Location string   `json:"location"`
	Type     string   `json:"type"`
	Score    int      `json:"score"`
	Tags     []string `json:"tags"`
}

// Matching holds offers ordered by score, best first.
type Matching struct {
	Offers []Offer `json:"offers"`
}

// Appointment is a booked advising session.
type Appointment struct {
	ID       string    `json:"id"`
	Advisor  string    `json:"advisor"`
	Topic    string    `json:"topic"`
	StartsAt time.Time `json:"startsAt"`
	Minutes  int       `json:"durationMinutes"`
	Location string    `json:"location"`
	Status   string    `json:"status"`
}

// Appointments holds upcoming sessions ordered by start time.
type Appointments struct {
	Items []Appointment `json:"items"`
}
