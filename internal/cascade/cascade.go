// Package cascade implements the year → college → course filter chain.
//
// The Controller is a plain finite-state machine: it owns the filter values,
// clears everything to the right of a changed level, and tells the caller
// which fetch the new state needs. It performs no I/O itself, so every
// transition can be exercised without a backend.
package cascade

import (
	"fmt"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/pagination"
)

// State is the position in the filter chain.
type State int

// Filter chain states, ordered from least to most specific.
const (
	StateEmpty State = iota
	StateYearChosen
	StateCollegeChosen
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateYearChosen:
		return "year_chosen"
	case StateCollegeChosen:
		return "college_chosen"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetch names the request a transition requires.
type Fetch int

// Fetch kinds.
const (
	FetchNone Fetch = iota
	FetchColleges
	FetchCourses
	FetchStudents
)

func (f Fetch) String() string {
	switch f {
	case FetchNone:
		return "none"
	case FetchColleges:
		return "colleges"
	case FetchCourses:
		return "courses"
	case FetchStudents:
		return "students"
	default:
		return fmt.Sprintf("fetch(%d)", int(f))
	}
}

// Filter is the current selection. College is only set when Year is, Course
// only when College is, and Page is always at least 1.
type Filter struct {
	Year    string `json:"year"`
	College string `json:"college"`
	Course  string `json:"course"`
	Page    int    `json:"page"`
}

// State derives the chain position from the filled levels.
func (f Filter) State() State {
	switch {
	case f.Course != "":
		return StateReady
	case f.College != "":
		return StateCollegeChosen
	case f.Year != "":
		return StateYearChosen
	default:
		return StateEmpty
	}
}

// Transition describes the effect of one controller call.
type Transition struct {
	From  State
	To    State
	Fetch Fetch
	// Invalidated is true when the cascading result cache was cleared.
	Invalidated bool
}

// Clearer is the cache namespace the controller invalidates on every level
// change.
type Clearer interface {
	Clear()
}

// Controller owns the filter chain of one session. It is not safe for
// concurrent use; the owning session serializes access.
type Controller struct {
	filter Filter
	cache  Clearer
}

// NewController returns a controller in StateEmpty. cache may be nil.
func NewController(cache Clearer) *Controller {
	return &Controller{
		filter: Filter{Page: 1},
		cache:  cache,
	}
}

// Filter returns a copy of the current selection.
func (c *Controller) Filter() Filter {
	return c.filter
}

// State returns the current chain position.
func (c *Controller) State() State {
	return c.filter.State()
}

// SetYear selects a year. College, course and page are reset; an empty value
// walks back to StateEmpty.
func (c *Controller) SetYear(year string) Transition {
	from := c.State()
	c.filter = Filter{Year: year, Page: 1}
	t := c.invalidate(from)
	if year != "" {
		t.Fetch = FetchColleges
	}
	return t
}

// SetCollege selects a college under the current year. Course and page are
// reset; an empty value walks back to StateYearChosen.
func (c *Controller) SetCollege(college string) (Transition, error) {
	from := c.State()
	if from < StateYearChosen {
		return Transition{From: from, To: from}, fmt.Errorf("%w: college requires a year", domerrors.ErrInvalidTransition)
	}
	c.filter.College = college
	c.filter.Course = ""
	c.filter.Page = 1
	t := c.invalidate(from)
	if college != "" {
		t.Fetch = FetchCourses
	}
	return t, nil
}

// SetCourse selects a course under the current college and makes the filter
// ready. An empty value walks back to StateCollegeChosen.
func (c *Controller) SetCourse(course string) (Transition, error) {
	from := c.State()
	if from < StateCollegeChosen {
		return Transition{From: from, To: from}, fmt.Errorf("%w: course requires a college", domerrors.ErrInvalidTransition)
	}
	c.filter.Course = course
	c.filter.Page = 1
	t := c.invalidate(from)
	if course != "" {
		t.Fetch = FetchStudents
	}
	return t, nil
}

// Reset clears every level.
func (c *Controller) Reset() Transition {
	from := c.State()
	c.filter = Filter{Page: 1}
	return c.invalidate(from)
}

// SetPage moves to page, clamped to [1, totalPages]. Page changes keep the
// cache; a students fetch is requested only when the page actually moved.
func (c *Controller) SetPage(page, totalPages int) Transition {
	state := c.State()
	if state != StateReady {
		return Transition{From: state, To: state}
	}
	next := pagination.Clamp(page, totalPages)
	if next == c.filter.Page {
		return Transition{From: state, To: state}
	}
	c.filter.Page = next
	return Transition{From: state, To: state, Fetch: FetchStudents}
}

// NextPage advances one page when one exists.
func (c *Controller) NextPage(totalPages int) Transition {
	if !pagination.CanGoNext(c.filter.Page, totalPages) {
		state := c.State()
		return Transition{From: state, To: state}
	}
	return c.SetPage(c.filter.Page+1, totalPages)
}

// PrevPage goes back one page when one exists.
func (c *Controller) PrevPage(totalPages int) Transition {
	if !pagination.CanGoPrev(c.filter.Page) {
		state := c.State()
		return Transition{From: state, To: state}
	}
	return c.SetPage(c.filter.Page-1, totalPages)
}

func (c *Controller) invalidate(from State) Transition {
	if c.cache != nil {
		c.cache.Clear()
	}
	return Transition{From: from, To: c.State(), Invalidated: true}
}
