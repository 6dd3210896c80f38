package pagination

import (
	"testing"
)

func TestTotalPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		totalItems int
		pageSize   int
		want       int
	}{
		{"zero items", 0, 20, 0},
		{"exact multiple", 40, 20, 2},
		{"remainder", 47, 20, 3},
		{"bare array of five", 5, 20, 1},
		{"single item", 1, 20, 1},
		{"zero page size", 10, 0, 0},
		{"negative items", -3, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TotalPages(tt.totalItems, tt.pageSize); got != tt.want {
				t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.totalItems, tt.pageSize, got, tt.want)
			}
		})
	}
}

func TestTotalPagesMonotonic(t *testing.T) {
	t.Parallel()

	for _, pageSize := range []int{1, 3, 7, 20, 50} {
		prev := 0
		for items := 0; items <= 500; items++ {
			got := TotalPages(items, pageSize)
			if got < prev {
				t.Fatalf("TotalPages decreased at items=%d pageSize=%d: %d < %d", items, pageSize, got, prev)
			}
			prev = got
		}
	}
}

func TestClampWithinRange(t *testing.T) {
	t.Parallel()

	for totalPages := 1; totalPages <= 30; totalPages++ {
		for page := -5; page <= 40; page++ {
			got := Clamp(page, totalPages)
			if got < 1 || got > totalPages {
				t.Fatalf("Clamp(%d, %d) = %d, out of [1, %d]", page, totalPages, got, totalPages)
			}
		}
	}
}

func TestClampZeroPages(t *testing.T) {
	t.Parallel()

	if got := Clamp(7, 0); got != 1 {
		t.Errorf("Clamp(7, 0) = %d, want 1", got)
	}
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	if CanGoPrev(1) {
		t.Error("CanGoPrev(1) should be false")
	}
	if !CanGoPrev(2) {
		t.Error("CanGoPrev(2) should be true")
	}
	if CanGoNext(3, 3) {
		t.Error("CanGoNext(3, 3) should be false")
	}
	if !CanGoNext(2, 3) {
		t.Error("CanGoNext(2, 3) should be true")
	}

	// Past either end is a no-op
	if got := Next(3, 3); got != 3 {
		t.Errorf("Next(3, 3) = %d, want 3", got)
	}
	if got := Prev(1); got != 1 {
		t.Errorf("Prev(1) = %d, want 1", got)
	}
	if got := Next(1, 3); got != 2 {
		t.Errorf("Next(1, 3) = %d, want 2", got)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	items := make([]int, 7)
	page := New(items, 47, 20, 4)

	if page.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page.TotalPages)
	}
	if page.CurrentPage != 3 {
		t.Errorf("CurrentPage = %d, want 3 (clamped)", page.CurrentPage)
	}
	if len(page.Items) != 7 {
		t.Errorf("len(Items) = %d, want 7", len(page.Items))
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	page := Empty[string](20)
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil slice", page.Items)
	}
	if page.TotalPages != 0 || page.CurrentPage != 1 {
		t.Errorf("got TotalPages=%d CurrentPage=%d, want 0 and 1", page.TotalPages, page.CurrentPage)
	}
}
