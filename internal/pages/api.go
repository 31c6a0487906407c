package pages

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"student-dashboard/internal/shared/transport"
)

// API is the boundary the page resources fetch through.
type API interface {
	Profile(ctx context.Context, userID string) (Profile, error)
	Journey(ctx context.Context, userID string) (Journey, error)
	Matching(ctx context.Context, userID string) (Matching, error)
	Appointments(ctx context.Context, userID string) (Appointments, error)
}

// MockAPI serves seeded data behind the simulated transport.
type MockAPI struct {
	Transport transport.Simulator
	// Fail, when set, is consulted before every call; a non-nil error is returned as the call's failure.
	Fail func(page Page, userID string) error

	now func() time.Time

	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMockAPI constructs a MockAPI with the given simulated latency.
func NewMockAPI(latency time.Duration) *MockAPI {
	return &MockAPI{
		Transport: transport.Simulator{Latency: latency},
		now:       time.Now,
		profiles:  make(map[string]Profile),
	}
}

func (m *MockAPI) call(ctx context.Context, page Page, userID string) error {
	if err := m.Transport.Wait(ctx); err != nil {
		return err
	}
	if m.Fail != nil {
		return m.Fail(page, userID)
	}
	return nil
}

var (
	firstNames = []string{"Ada", "Grace", "Alan", "Katherine", "Linus", "Margaret", "Dennis", "Barbara"}
	lastNames  = []string{"Lovelace", "Hopper", "Turing", "Johnson", "Torvalds", "Hamilton", "Ritchie", "Liskov"}
	programs   = []string{"Computer Science", "Data Engineering", "Applied Mathematics", "Information Systems"}
	campuses   = []string{"North", "South", "City Centre"}
)

func pick(values []string, h uint32, salt uint32) string {
	return values[(h/(salt+1))%uint32(len(values))]
}

func userHash(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32()
}

// Profile returns the user's seeded profile. The first call fixes it for the user.
func (m *MockAPI) Profile(ctx context.Context, userID string) (Profile, error) {
	if err := m.call(ctx, PageProfile, userID); err != nil {
		return Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	h := userHash(userID)
	first, last := pick(firstNames, h, 0), pick(lastNames, h, 7)
	p := Profile{
		UserID:    userID,
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(first+"."+last) + "@student.example.edu",
		Program:   pick(programs, h, 3),
		Year:      int(h%4) + 1,
		Campus:    pick(campuses, h, 5),
		Skills:    []string{"Go", "SQL", "Git"},
		Interests: []string{"backend development", "data platforms"},
		UpdatedAt: m.now().UTC().Truncate(time.Second),
	}
	m.profiles[userID] = p
	return p, nil
}

// Journey returns the fixed milestone list, with due dates relative to now.
func (m *MockAPI) Journey(ctx context.Context, userID string) (Journey, error) {
	if err := m.call(ctx, PageJourney, userID); err != nil {
		return Journey{}, err
	}
	due := func(days int) *time.Time {
		t := m.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, days)
		return &t
	}
	steps := []JourneyStep{
		{ID: "j1", Title: "Complete your profile", Description: "Fill in program, skills and interests.", Status: StepDone},
		{ID: "j2", Title: "Explore career paths", Description: "Review the career path guides for your program.", Status: StepDone},
		{ID: "j3", Title: "Upload your CV", Description: "Add a PDF or Word CV so partners can review it.", Status: StepCurrent, DueDate: due(4)},
		{ID: "j4", Title: "Meet an advisor", Description: "Book a session to plan your applications.", Status: StepUpcoming, DueDate: due(14)},
		{ID: "j5", Title: "Apply to matched offers", Description: "Send at least three applications.", Status: StepUpcoming, DueDate: due(30)},
	}
	j := Journey{Steps: steps, Total: len(steps)}
	for _, s := range steps {
		if s.Status == StepDone {
			j.Completed++
		}
	}
	return j, nil
}

// Matching returns the seeded offers ordered by score.
func (m *MockAPI) Matching(ctx context.Context, userID string) (Matching, error) {
	if err := m.call(ctx, PageMatching, userID); err != nil {
		return Matching{}, err
	}
	offers := []Offer{
		{ID: "o1", Company: "Northwind Labs", Title: "Backend Engineering Intern", Location: "Remote", Type: "internship", Score: 92, Tags: []string{"Go", "PostgreSQL"}},
		{ID: "o2", Company: "Contoso Data", Title: "Data Platform Intern", Location: "Paris", Type: "internship", Score: 81, Tags: []string{"SQL", "Kafka"}},
		{ID: "o3", Company: "Fabrikam", Title: "Junior Software Engineer", Location: "Lyon", Type: "job", Score: 74, Tags: []string{"Go", "Kubernetes"}},
		{ID: "o4", Company: "Tailspin Toys", Title: "QA Automation Apprentice", Location: "Lille", Type: "apprenticeship", Score: 63, Tags: []string{"Testing"}},
	}
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Score > offers[j].Score })
	return Matching{Offers: offers}, nil
}

// Appointments returns the seeded upcoming sessions.
func (m *MockAPI) Appointments(ctx context.Context, userID string) (Appointments, error) {
	if err := m.call(ctx, PageAppointments, userID); err != nil {
		return Appointments{}, err
	}
	day := m.now().UTC().Truncate(24 * time.Hour)
	return Appointments{Items: []Appointment{
		{ID: "a1", Advisor: "Claire Martin", Topic: "CV review", StartsAt: day.AddDate(0, 0, 3).Add(10 * time.Hour), Minutes: 30, Location: "Career centre, room 2", Status: "confirmed"},
		{ID: "a2", Advisor: "Hugo Bernard", Topic: "Internship search strategy", StartsAt: day.AddDate(0, 0, 9).Add(14 * time.Hour), Minutes: 45, Location: "Online", Status: "pending"},
	}}, nil
}

// StubAPI stands in for the real backend, which does not exist yet. Every call fails with ErrNotImplemented.
type StubAPI struct{}

func (StubAPI) Profile(context.Context, string) (Profile, error) {
	return Profile{}, ErrNotImplemented
}

func (StubAPI) Journey(context.Context, string) (Journey, error) {
	return Journey{}, ErrNotImplemented
}

func (StubAPI) Matching(context.Context, string) (Matching, error) {
	return Matching{}, ErrNotImplemented
}

func (StubAPI) Appointments(context.Context, string) (Appointments, error) {
	return Appointments{}, ErrNotImplemented
}

var (
	_ API = (*MockAPI)(nil)
	_ API = StubAPI{}
)
