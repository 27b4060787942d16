package validation

import (
	"math/rand"
	"testing"

	"github.com/anime-shed/image-annotator-go/pkg/models"
)

func TestOverlaps_FewerThanTwo(t *testing.T) {
	if Overlaps(nil) {
		t.Error("Expected nil slice to never overlap")
	}
	if Overlaps([]Rectangle{}) {
		t.Error("Expected empty slice to never overlap")
	}
	if Overlaps([]Rectangle{{X: 0, Y: 0, Width: 10, Height: 10}}) {
		t.Error("Expected a single rectangle to never overlap")
	}
}

func TestOverlaps_Cases(t *testing.T) {
	tests := []struct {
		name     string
		rects    []Rectangle
		expected bool
	}{
		{
			name:     "shared vertical edge",
			rects:    []Rectangle{{0, 0, 10, 10}, {10, 0, 10, 10}},
			expected: false,
		},
		{
			name:     "shared horizontal edge",
			rects:    []Rectangle{{0, 0, 10, 10}, {0, 10, 10, 10}},
			expected: false,
		},
		{
			name:     "shared corner",
			rects:    []Rectangle{{0, 0, 10, 10}, {10, 10, 5, 5}},
			expected: false,
		},
		{
			name:     "offset overlap",
			rects:    []Rectangle{{10, 20, 100, 200}, {15, 25, 100, 200}},
			expected: true,
		},
		{
			name:     "containment",
			rects:    []Rectangle{{0, 0, 100, 100}, {10, 10, 5, 5}},
			expected: true,
		},
		{
			name:     "identical",
			rects:    []Rectangle{{3, 3, 4, 4}, {3, 3, 4, 4}},
			expected: true,
		},
		{
			name:     "far apart",
			rects:    []Rectangle{{0, 0, 10, 10}, {50, 50, 10, 10}},
			expected: false,
		},
		{
			name:     "overlap on x only",
			rects:    []Rectangle{{0, 0, 10, 10}, {5, 20, 10, 10}},
			expected: false,
		},
		{
			name:     "zero width on the edge",
			rects:    []Rectangle{{0, 0, 10, 10}, {10, 0, 0, 10}},
			expected: false,
		},
		{
			name:     "zero width line crossing the interior",
			rects:    []Rectangle{{0, 0, 10, 10}, {5, 2, 0, 4}},
			expected: true,
		},
		{
			name:     "overlap found past the first pair",
			rects:    []Rectangle{{0, 0, 5, 5}, {20, 20, 5, 5}, {40, 40, 5, 5}, {22, 22, 1, 1}},
			expected: true,
		},
		{
			name:     "negative width extends left",
			rects:    []Rectangle{{10, 0, -5, 10}, {6, 0, 2, 10}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.rects); got != tt.expected {
				t.Errorf("Expected %v, got %v for %+v", tt.expected, got, tt.rects)
			}
		})
	}
}

// intersectionArea is an independent computation of the shared interior
func intersectionArea(a, b Rectangle) int {
	left := max(a.X, b.X)
	right := min(a.X+a.Width, b.X+b.Width)
	top := max(a.Y, b.Y)
	bottom := min(a.Y+a.Height, b.Y+b.Height)
	if right <= left || bottom <= top {
		return 0
	}
	return (right - left) * (bottom - top)
}

func TestOverlaps_MatchesPositiveAreaIntersection(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomRect := func() Rectangle {
		return Rectangle{
			X:      rng.Intn(100),
			Y:      rng.Intn(100),
			Width:  1 + rng.Intn(40),
			Height: 1 + rng.Intn(40),
		}
	}

	for i := 0; i < 5000; i++ {
		a, b := randomRect(), randomRect()
		expected := intersectionArea(a, b) > 0
		if got := Overlaps([]Rectangle{a, b}); got != expected {
			t.Fatalf("Mismatch for %+v and %+v: expected %v, got %v", a, b, expected, got)
		}
		// order of the pair does not matter
		if got := Overlaps([]Rectangle{b, a}); got != expected {
			t.Fatalf("Mismatch for reversed pair %+v and %+v: expected %v, got %v", b, a, expected, got)
		}
	}
}

func TestBoxesOverlap_IgnoresRotation(t *testing.T) {
	boxes := []models.BoundingBox{
		{X: 0, Y: 0, Width: 10, Height: 10, Rotation: 45},
		{X: 10, Y: 0, Width: 10, Height: 10, Rotation: 90},
	}
	if BoxesOverlap(boxes) {
		t.Error("Expected touching boxes with rotation to not overlap")
	}

	boxes[1].X = 9
	if !BoxesOverlap(boxes) {
		t.Error("Expected overlapping boxes to be detected")
	}
}
