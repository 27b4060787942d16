package validation

import "github.com/anime-shed/image-annotator-go/pkg/models"

// Rectangle is the axis-aligned extent used for overlap checks
type Rectangle struct {
	X, Y, Width, Height int
}

// RectangleOf drops the rotation of a bounding box
func RectangleOf(box models.BoundingBox) Rectangle {
	return Rectangle{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}
}

// Intersects reports a strict interior intersection on both axes.
// Rectangles sharing only an edge or a corner do not intersect.
func (r Rectangle) Intersects(o Rectangle) bool {
	return r.X < o.X+o.Width &&
		r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height &&
		r.Y+r.Height > o.Y
}

// Overlaps reports whether any pair of rectangles intersects, stopping at
// the first pair found. Width and height are used as given, so a negative
// span extends the rectangle in the negative direction.
func Overlaps(rects []Rectangle) bool {
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Intersects(rects[j]) {
				return true
			}
		}
	}
	return false
}

// BoxesOverlap applies Overlaps to bounding boxes
func BoxesOverlap(boxes []models.BoundingBox) bool {
	rects := make([]Rectangle, len(boxes))
	for i, box := range boxes {
		rects[i] = RectangleOf(box)
	}
	return Overlaps(rects)
}
