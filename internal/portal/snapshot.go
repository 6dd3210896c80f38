package portal

import (
	"github.com/garyellow/lnmu-portal/internal/cascade"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// Snapshot is a read-only copy of a session's visible state.
type Snapshot struct {
	ID      string      `json:"id"`
	Tab     Tab         `json:"tab"`
	Loading bool        `json:"loading"`
	Search  SearchView  `json:"search"`
	Guided  GuidedView  `json:"guided"`
	Profile ProfileView `json:"profile"`
}

// SearchView is the free-text side of a snapshot.
type SearchView struct {
	Query   string     `json:"query"`
	Results ResultPage `json:"results"`
}

// GuidedView is the guided side of a snapshot.
type GuidedView struct {
	Filter   cascade.Filter `json:"filter"`
	State    string         `json:"state"`
	Years    []string       `json:"years"`
	Colleges []string       `json:"colleges"`
	Courses  []string       `json:"courses"`
	Results  ResultPage     `json:"results"`
}

// ProfileView describes the detail view.
type ProfileView struct {
	Open    bool             `json:"open"`
	Pending string           `json:"pending,omitempty"`
	Student *student.Profile `json:"student,omitempty"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:  s.id,
		Tab: s.tab,
		Search: SearchView{
			Query:   s.query,
			Results: s.searchPage,
		},
		Guided: GuidedView{
			Filter:   s.filter.Filter(),
			State:    s.filter.State().String(),
			Years:    nonNil(s.years),
			Colleges: nonNil(s.colleges),
			Courses:  nonNil(s.courses),
			Results:  s.guidedPage,
		},
	}
	s.mu.Unlock()

	snap.Loading = s.loading.Visible()
	snap.Profile.Student, snap.Profile.Open = s.profiles.Current()
	snap.Profile.Open = snap.Profile.Open && s.profiles.Visible()
	snap.Profile.Pending = s.profiles.Pending()
	return snap
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return clone(in)
}
