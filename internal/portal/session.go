// Package portal wires the student portal together. A Session holds one
// user's state: the free-text search, the guided year/college/course filter,
// their result caches, the open profile, and report export.
//
// Session methods may be called from several goroutines. State is guarded by
// a mutex that is never held across a network call; every response is
// applied only if its request token is still current.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/garyellow/lnmu-portal/internal/backend"
	"github.com/garyellow/lnmu-portal/internal/cascade"
	"github.com/garyellow/lnmu-portal/internal/ctxutil"
	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/export"
	"github.com/garyellow/lnmu-portal/internal/loading"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/pagination"
	"github.com/garyellow/lnmu-portal/internal/profile"
	"github.com/garyellow/lnmu-portal/internal/reqtoken"
	"github.com/garyellow/lnmu-portal/internal/resultcache"
	"github.com/garyellow/lnmu-portal/internal/sentry"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// Backend is the records API a session reads from.
type Backend interface {
	Search(ctx context.Context, query string, page, pageSize int) (backend.List, error)
	Years(ctx context.Context) ([]string, error)
	Colleges(ctx context.Context, year string) ([]string, error)
	Courses(ctx context.Context, year, college string) ([]string, error)
	Students(ctx context.Context, q backend.StudentQuery) (backend.List, error)
	Student(ctx context.Context, roll string) (*student.Profile, error)
}

// Exporter produces report artifacts.
type Exporter interface {
	Encode(ctx context.Context, prof *student.Profile, format export.Format) (export.Artifact, error)
	Export(ctx context.Context, prof *student.Profile, format export.Format) (string, error)
}

// Recorder receives session metrics.
type Recorder interface {
	RecordCacheHit(mode string)
	RecordCacheMiss(mode string)
	RecordStaleResponse(role string)
	RecordSingleflightDedup(mode string)
	SetLoadingOperations(n int)
}

// Tab is the active search mode.
type Tab string

// Search modes.
const (
	TabDirect Tab = "direct"
	TabGuided Tab = "guided"
)

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case TabDirect:
		return TabDirect, nil
	case TabGuided:
		return TabGuided, nil
	default:
		return "", domerrors.NewValidationError("tab", fmt.Sprintf("unknown tab %q", s))
	}
}

// SearchKey identifies a cached free-text page.
type SearchKey struct {
	Query string
	Page  int
}

// GuidedKey identifies a cached guided page.
type GuidedKey struct {
	Year    string
	College string
	Course  string
	Page    int
}

// ResultPage is one page of student summaries.
type ResultPage = pagination.Page[student.Summary]

// Options configures a Session.
type Options struct {
	Backend  Backend
	Exporter Exporter
	PageSize int
	Logger   *logger.Logger
	Recorder Recorder
	// OnLoadingChange is called when the loading overlay appears or clears.
	OnLoadingChange func(visible bool)
}

// Session is one user's portal state.
type Session struct {
	id       string
	backend  Backend
	exporter Exporter
	pageSize int
	log      *logger.Logger
	recorder Recorder

	loading  *loading.Coordinator
	profiles *profile.Loader
	tokens   reqtoken.Tracker
	flights  singleflight.Group

	searchCache *resultcache.Cache[SearchKey]
	guidedCache *resultcache.Cache[GuidedKey]

	mu         sync.Mutex
	tab        Tab
	query      string
	searchAt   int
	searchPage ResultPage
	filter     *cascade.Controller
	guidedPage ResultPage
	years      []string
	colleges   []string
	courses    []string
	lastActive time.Time
}

// NewSession creates a session identified by id.
func NewSession(id string, opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("session needs a backend")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithModule("portal").WithField("session_id", id)

	var gauge loading.Gauge
	if opts.Recorder != nil {
		gauge = opts.Recorder
	}
	coord := loading.New(gauge, opts.OnLoadingChange)

	s := &Session{
		id:          id,
		backend:     opts.Backend,
		exporter:    opts.Exporter,
		pageSize:    pageSize,
		log:         log,
		recorder:    opts.Recorder,
		loading:     coord,
		searchCache: resultcache.New[SearchKey](string(TabDirect)),
		guidedCache: resultcache.New[GuidedKey](string(TabGuided)),
		tab:         TabDirect,
		searchAt:    1,
		searchPage:  pagination.Empty[student.Summary](pageSize),
		guidedPage:  pagination.Empty[student.Summary](pageSize),
		lastActive:  time.Now(),
	}
	if opts.Recorder != nil {
		s.searchCache.SetRecorder(opts.Recorder)
		s.guidedCache.SetRecorder(opts.Recorder)
	}
	s.filter = cascade.NewController(s.guidedCache)

	profileOpts := profile.Options{Loading: coord, Logger: log}
	if opts.Recorder != nil {
		profileOpts.Recorder = opts.Recorder
	}
	s.profiles = profile.NewLoader(opts.Backend, profileOpts)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Loading reports whether any operation is in flight.
func (s *Session) Loading() bool {
	return s.loading.Visible()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) scope(ctx context.Context) context.Context {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return ctxutil.WithSessionID(ctx, s.id)
}

// NormalizeQuery applies NFKC and collapses whitespace so equivalent input
// shares one cache key.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(q)), " ")
}

// SwitchTab changes the search mode. Switching resets both modes, their
// caches and the open profile.
func (s *Session) SwitchTab(tab Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.tab = tab
	s.lastActive = time.Now()
}

// Reset returns the session to its initial state.
func (s *Session) Reset() {
	s.SwitchTab(TabDirect)
}

func (s *Session) resetLocked() {
	s.tokens.Invalidate(reqtoken.RoleSearch, reqtoken.RoleGuided, reqtoken.RoleColleges, reqtoken.RoleCourses)
	s.query = ""
	s.searchAt = 1
	s.searchPage = pagination.Empty[student.Summary](s.pageSize)
	s.searchCache.Clear()
	s.filter.Reset()
	s.colleges = nil
	s.courses = nil
	s.guidedPage = pagination.Empty[student.Summary](s.pageSize)
	s.profiles.Close()
}

// Search starts a new free-text query at page 1. The free-text cache is
// cleared and any open profile is closed. An empty query clears the results
// without a request.
func (s *Session) Search(ctx context.Context, query string) (ResultPage, error) {
	ctx = s.scope(ctx)
	q := NormalizeQuery(query)

	s.mu.Lock()
	s.tab = TabDirect
	s.searchCache.Clear()
	s.profiles.Close()
	s.query = q
	s.searchAt = 1
	if q == "" {
		s.tokens.Invalidate(reqtoken.RoleSearch)
		s.searchPage = pagination.Empty[student.Summary](s.pageSize)
		page := s.searchPage
		s.mu.Unlock()
		return page, nil
	}
	key := SearchKey{Query: q, Page: 1}
	page, tok, hit := s.startSearchLocked(key)
	s.mu.Unlock()

	if hit {
		return page, nil
	}
	return s.fetchSearch(ctx, key, tok)
}

// GotoPage moves the active tab's results to page, clamped to the known
// page range. Moving nowhere is a no-op.
func (s *Session) GotoPage(ctx context.Context, page int) (ResultPage, error) {
	ctx = s.scope(ctx)

	s.mu.Lock()
	if s.tab == TabGuided {
		t := s.filter.SetPage(page, s.guidedPage.TotalPages)
		if t.Fetch != cascade.FetchStudents {
			current := s.guidedPage
			s.mu.Unlock()
			return current, nil
		}
		key := guidedKey(s.filter.Filter())
		current, tok, hit := s.startGuidedLocked(key)
		s.mu.Unlock()
		if hit {
			return current, nil
		}
		return s.fetchGuided(ctx, key, tok)
	}

	current := s.searchPage
	if s.query == "" {
		s.mu.Unlock()
		return current, nil
	}
	next := pagination.Clamp(page, s.searchPage.TotalPages)
	if next == s.searchAt {
		s.mu.Unlock()
		return current, nil
	}
	s.searchAt = next
	key := SearchKey{Query: s.query, Page: next}
	current, tok, hit := s.startSearchLocked(key)
	s.mu.Unlock()
	if hit {
		return current, nil
	}
	return s.fetchSearch(ctx, key, tok)
}

// NextPage advances the active tab's results one page when possible.
func (s *Session) NextPage(ctx context.Context) (ResultPage, error) {
	s.mu.Lock()
	page, total := s.currentPageLocked()
	s.mu.Unlock()
	if !pagination.CanGoNext(page, total) {
		return s.Results(), nil
	}
	return s.GotoPage(ctx, page+1)
}

// PrevPage moves the active tab's results back one page when possible.
func (s *Session) PrevPage(ctx context.Context) (ResultPage, error) {
	s.mu.Lock()
	page, _ := s.currentPageLocked()
	s.mu.Unlock()
	if !pagination.CanGoPrev(page) {
		return s.Results(), nil
	}
	return s.GotoPage(ctx, page-1)
}

func (s *Session) currentPageLocked() (page, total int) {
	if s.tab == TabGuided {
		return s.filter.Filter().Page, s.guidedPage.TotalPages
	}
	return s.searchAt, s.searchPage.TotalPages
}

// Results returns the result page of the active tab.
func (s *Session) Results() ResultPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == TabGuided {
		return s.guidedPage
	}
	return s.searchPage
}

// LoadYears fetches the enrollment years once per session.
func (s *Session) LoadYears(ctx context.Context) ([]string, error) {
	ctx = s.scope(ctx)

	s.mu.Lock()
	if len(s.years) > 0 {
		years := clone(s.years)
		s.mu.Unlock()
		return years, nil
	}
	tok := s.tokens.Issue(reqtoken.RoleYears)
	s.mu.Unlock()

	years, err := flight(s, "years", "years", func() ([]string, error) {
		return s.backend.Years(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Current(tok) {
		return nil, s.staleLocked(reqtoken.RoleYears)
	}
	if err != nil {
		s.failed(ctx, "years", err)
		return nil, err
	}
	s.years = years
	return clone(years), nil
}

// SetYear selects an enrollment year and loads its colleges. College,
// course, page and the guided cache are reset.
func (s *Session) SetYear(ctx context.Context, year string) ([]string, error) {
	ctx = s.scope(ctx)
	year = strings.TrimSpace(year)

	s.mu.Lock()
	s.tab = TabGuided
	t := s.filter.SetYear(year)
	s.afterLevelChangeLocked()
	s.colleges = nil
	if t.Fetch != cascade.FetchColleges {
		s.mu.Unlock()
		return nil, nil
	}
	tok := s.tokens.Issue(reqtoken.RoleColleges)
	s.mu.Unlock()

	return s.loadOptions(ctx, tok, "colleges\x00"+year, func() ([]string, error) {
		return s.backend.Colleges(ctx, year)
	})
}

// SetCollege selects a college under the chosen year and loads its courses.
func (s *Session) SetCollege(ctx context.Context, college string) ([]string, error) {
	ctx = s.scope(ctx)
	college = strings.TrimSpace(college)

	s.mu.Lock()
	s.tab = TabGuided
	t, err := s.filter.SetCollege(college)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.afterLevelChangeLocked()
	f := s.filter.Filter()
	if t.Fetch != cascade.FetchCourses {
		s.mu.Unlock()
		return nil, nil
	}
	tok := s.tokens.Issue(reqtoken.RoleCourses)
	s.mu.Unlock()

	return s.loadOptions(ctx, tok, "courses\x00"+f.Year+"\x00"+college, func() ([]string, error) {
		return s.backend.Courses(ctx, f.Year, college)
	})
}

// SetCourse selects a course and loads the first page of students.
func (s *Session) SetCourse(ctx context.Context, course string) (ResultPage, error) {
	ctx = s.scope(ctx)
	course = strings.TrimSpace(course)

	s.mu.Lock()
	s.tab = TabGuided
	t, err := s.filter.SetCourse(course)
	if err != nil {
		current := s.guidedPage
		s.mu.Unlock()
		return current, err
	}
	s.afterLevelChangeLocked()
	if t.Fetch != cascade.FetchStudents {
		current := s.guidedPage
		s.mu.Unlock()
		return current, nil
	}
	key := guidedKey(s.filter.Filter())
	current, tok, hit := s.startGuidedLocked(key)
	s.mu.Unlock()

	if hit {
		return current, nil
	}
	return s.fetchGuided(ctx, key, tok)
}

// afterLevelChangeLocked drops everything below the level that changed. The
// controller has already cleared the guided cache.
func (s *Session) afterLevelChangeLocked() {
	f := s.filter.Filter()
	roles := []reqtoken.Role{reqtoken.RoleGuided}
	if f.College == "" {
		roles = append(roles, reqtoken.RoleCourses)
		s.courses = nil
	}
	if f.Year == "" {
		roles = append(roles, reqtoken.RoleColleges)
		s.colleges = nil
	}
	s.tokens.Invalidate(roles...)
	s.guidedPage = pagination.Empty[student.Summary](s.pageSize)
}

// loadOptions fetches an option list for tok, which must have been issued in
// the same critical section that changed the filter.
func (s *Session) loadOptions(ctx context.Context, tok reqtoken.Token, key string, fetch func() ([]string, error)) ([]string, error) {
	role := tok.Role()
	opts, err := flight(s, string(role), key, fetch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Current(tok) {
		return nil, s.staleLocked(role)
	}
	if err != nil {
		s.failed(ctx, string(role), err)
		return nil, err
	}
	switch role {
	case reqtoken.RoleColleges:
		s.colleges = opts
	case reqtoken.RoleCourses:
		s.courses = opts
	}
	return clone(opts), nil
}

func guidedKey(f cascade.Filter) GuidedKey {
	return GuidedKey{Year: f.Year, College: f.College, Course: f.Course, Page: f.Page}
}

// startSearchLocked serves key from the cache, or issues the token its fetch
// must still hold when the response arrives.
func (s *Session) startSearchLocked(key SearchKey) (ResultPage, reqtoken.Token, bool) {
	if entry, ok := s.searchCache.Get(key); ok {
		s.tokens.Invalidate(reqtoken.RoleSearch)
		s.searchPage = pagination.New(entry.Items, entry.TotalItems, s.pageSize, key.Page)
		return s.searchPage, reqtoken.Token{}, true
	}
	return s.searchPage, s.tokens.Issue(reqtoken.RoleSearch), false
}

func (s *Session) startGuidedLocked(key GuidedKey) (ResultPage, reqtoken.Token, bool) {
	if entry, ok := s.guidedCache.Get(key); ok {
		s.tokens.Invalidate(reqtoken.RoleGuided)
		s.guidedPage = pagination.New(entry.Items, entry.TotalItems, s.pageSize, key.Page)
		return s.guidedPage, reqtoken.Token{}, true
	}
	return s.guidedPage, s.tokens.Issue(reqtoken.RoleGuided), false
}

func (s *Session) fetchSearch(ctx context.Context, key SearchKey, tok reqtoken.Token) (ResultPage, error) {
	list, err := flight(s, string(TabDirect), fmt.Sprintf("search\x00%s\x00%d", key.Query, key.Page), func() (backend.List, error) {
		return s.backend.Search(ctx, key.Query, key.Page, s.pageSize)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Current(tok) {
		return s.searchPage, s.staleLocked(reqtoken.RoleSearch)
	}
	if err != nil {
		s.searchPage = pagination.Empty[student.Summary](s.pageSize)
		s.failed(ctx, "search", err)
		return s.searchPage, err
	}
	s.searchCache.Put(key, s.entry(list))
	s.searchPage = pagination.New(list.Items, list.TotalItems, s.pageSize, key.Page)
	return s.searchPage, nil
}

func (s *Session) fetchGuided(ctx context.Context, key GuidedKey, tok reqtoken.Token) (ResultPage, error) {
	flightKey := fmt.Sprintf("students\x00%s\x00%s\x00%s\x00%d", key.Year, key.College, key.Course, key.Page)
	list, err := flight(s, string(TabGuided), flightKey, func() (backend.List, error) {
		return s.backend.Students(ctx, backend.StudentQuery{
			Year:     key.Year,
			College:  key.College,
			Course:   key.Course,
			Page:     key.Page,
			PageSize: s.pageSize,
		})
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokens.Current(tok) {
		return s.guidedPage, s.staleLocked(reqtoken.RoleGuided)
	}
	if err != nil {
		s.guidedPage = pagination.Empty[student.Summary](s.pageSize)
		s.failed(ctx, "students", err)
		return s.guidedPage, err
	}
	s.guidedCache.Put(key, s.entry(list))
	s.guidedPage = pagination.New(list.Items, list.TotalItems, s.pageSize, key.Page)
	return s.guidedPage, nil
}

func (s *Session) entry(list backend.List) resultcache.Entry {
	return resultcache.Entry{
		Items:      list.Items,
		TotalItems: list.TotalItems,
		TotalPages: pagination.TotalPages(list.TotalItems, s.pageSize),
	}
}

// flight runs fetch as one tracked operation, coalescing concurrent calls
// that share key.
func flight[T any](s *Session, mode, key string, fetch func() (T, error)) (T, error) {
	done := s.loading.Begin()
	defer done()

	v, err, shared := s.flights.Do(key, func() (any, error) {
		return fetch()
	})
	if shared && s.recorder != nil {
		s.recorder.RecordSingleflightDedup(mode)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Degraded reports whether err is a fetch failure the session has already
// absorbed by emptying the results or option list, or by leaving the detail
// view closed. Callers show that state rather than an error.
func Degraded(err error) bool {
	var backendErr *domerrors.BackendError
	return errors.As(err, &backendErr) ||
		errors.Is(err, domerrors.ErrTimeout) ||
		domerrors.IsMalformed(err) ||
		domerrors.IsNotFound(err)
}

func (s *Session) staleLocked(role reqtoken.Role) error {
	if s.recorder != nil {
		s.recorder.RecordStaleResponse(string(role))
	}
	s.log.Debug("Discarding superseded response", "role", string(role))
	return domerrors.ErrStaleResponse
}

// failed logs a fetch failure. Malformed responses are only logged; other
// failures are also reported.
func (s *Session) failed(ctx context.Context, what string, err error) {
	if domerrors.IsMalformed(err) {
		s.log.WithError(err).WarnContext(ctx, "Unexpected response shape", "request", what)
		return
	}
	s.log.WithError(err).WarnContext(ctx, "Backend request failed", "request", what)
	sentry.CaptureWarning(ctx, err)
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
