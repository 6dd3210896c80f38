package cascade

import (
	"errors"
	"math/rand/v2"
	"testing"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	clears int
}

func (f *fakeCache) Clear() { f.clears++ }

func readyController(t *testing.T) (*Controller, *fakeCache) {
	t.Helper()
	cache := &fakeCache{}
	c := NewController(cache)
	c.SetYear("2023")
	_, err := c.SetCollege("C.M. College")
	require.NoError(t, err)
	_, err = c.SetCourse("Physics")
	require.NoError(t, err)
	return c, cache
}

func TestControllerHappyPath(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{}
	c := NewController(cache)
	assert.Equal(t, StateEmpty, c.State())

	tr := c.SetYear("2023")
	assert.Equal(t, Transition{From: StateEmpty, To: StateYearChosen, Fetch: FetchColleges, Invalidated: true}, tr)

	tr, err := c.SetCollege("C.M. College")
	require.NoError(t, err)
	assert.Equal(t, StateCollegeChosen, tr.To)
	assert.Equal(t, FetchCourses, tr.Fetch)

	tr, err = c.SetCourse("Physics")
	require.NoError(t, err)
	assert.Equal(t, StateReady, tr.To)
	assert.Equal(t, FetchStudents, tr.Fetch)

	assert.Equal(t, Filter{Year: "2023", College: "C.M. College", Course: "Physics", Page: 1}, c.Filter())
	assert.Equal(t, 3, cache.clears)
}

func TestControllerRejectsSkippedLevels(t *testing.T) {
	t.Parallel()

	c := NewController(nil)

	_, err := c.SetCollege("C.M. College")
	assert.True(t, errors.Is(err, domerrors.ErrInvalidTransition))

	_, err = c.SetCourse("Physics")
	assert.True(t, errors.Is(err, domerrors.ErrInvalidTransition))

	c.SetYear("2023")
	_, err = c.SetCourse("Physics")
	assert.True(t, errors.Is(err, domerrors.ErrInvalidTransition))
	assert.Equal(t, StateYearChosen, c.State())
}

func TestControllerYearResetsEverything(t *testing.T) {
	t.Parallel()

	c, cache := readyController(t)
	c.SetPage(3, 5)
	before := cache.clears

	tr := c.SetYear("2024")

	assert.Equal(t, StateReady, tr.From)
	assert.Equal(t, StateYearChosen, tr.To)
	assert.Equal(t, Filter{Year: "2024", Page: 1}, c.Filter())
	assert.Equal(t, before+1, cache.clears)
}

func TestControllerEmptyValuesWalkBack(t *testing.T) {
	t.Parallel()

	c, _ := readyController(t)

	tr, err := c.SetCourse("")
	require.NoError(t, err)
	assert.Equal(t, StateCollegeChosen, tr.To)
	assert.Equal(t, FetchNone, tr.Fetch)

	tr, err = c.SetCollege("")
	require.NoError(t, err)
	assert.Equal(t, StateYearChosen, tr.To)

	tr = c.SetYear("")
	assert.Equal(t, StateEmpty, tr.To)
	assert.Equal(t, Filter{Page: 1}, c.Filter())
}

func TestControllerPaging(t *testing.T) {
	t.Parallel()

	c, cache := readyController(t)
	clears := cache.clears

	tr := c.NextPage(3)
	assert.Equal(t, FetchStudents, tr.Fetch)
	assert.Equal(t, 2, c.Filter().Page)

	c.NextPage(3)
	tr = c.NextPage(3)
	assert.Equal(t, FetchNone, tr.Fetch, "next past the last page is a no-op")
	assert.Equal(t, 3, c.Filter().Page)

	tr = c.SetPage(4, 3)
	assert.Equal(t, FetchNone, tr.Fetch, "page 4 of 3 clamps to the current page")
	assert.Equal(t, 3, c.Filter().Page)

	c.SetPage(1, 3)
	tr = c.PrevPage(3)
	assert.Equal(t, FetchNone, tr.Fetch)
	assert.Equal(t, 1, c.Filter().Page)

	assert.Equal(t, clears, cache.clears, "paging must not clear the cache")
}

func TestControllerPagingRequiresReady(t *testing.T) {
	t.Parallel()

	c := NewController(nil)
	c.SetYear("2023")

	tr := c.NextPage(10)
	assert.Equal(t, FetchNone, tr.Fetch)
	assert.Equal(t, 1, c.Filter().Page)
}

// Random operation sequences must keep the chain invariants, and every year
// change must reset the lower levels and clear the cache.
func TestControllerInvariantsUnderRandomSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	values := []string{"", "a", "b"}

	for run := range 200 {
		cache := &fakeCache{}
		c := NewController(cache)

		for step := range 40 {
			v := values[rng.IntN(len(values))]
			switch rng.IntN(5) {
			case 0:
				before := cache.clears
				c.SetYear(v)
				f := c.Filter()
				if f.College != "" || f.Course != "" || f.Page != 1 {
					t.Fatalf("run %d step %d: year change left %+v", run, step, f)
				}
				if cache.clears != before+1 {
					t.Fatalf("run %d step %d: year change did not clear cache", run, step)
				}
			case 1:
				_, _ = c.SetCollege(v)
			case 2:
				_, _ = c.SetCourse(v)
			case 3:
				c.NextPage(rng.IntN(6))
			case 4:
				c.PrevPage(rng.IntN(6))
			}

			f := c.Filter()
			if f.College != "" && f.Year == "" {
				t.Fatalf("run %d step %d: college without year: %+v", run, step, f)
			}
			if f.Course != "" && f.College == "" {
				t.Fatalf("run %d step %d: course without college: %+v", run, step, f)
			}
			if f.Page < 1 {
				t.Fatalf("run %d step %d: page below 1: %+v", run, step, f)
			}
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "colleges", FetchColleges.String())
}
