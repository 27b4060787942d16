package models

// BoundingBox is an axis-aligned rectangle on an image. Rotation is stored
// alongside the box but plays no part in overlap checks.
type BoundingBox struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	Rotation int `json:"rotation"`
}

// Annotation is the client-facing form of a stored record: boxes as
// structured data and the image re-encoded as base64 text.
type Annotation struct {
	ID            int64         `json:"id"`
	ImageData     string        `json:"image_data"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes"`
	MetaInfo      *string       `json:"meta_info"`
}

// BoundingBoxInput is a box as received from a client. Pointers let the
// validator tell an absent field from an explicit zero.
type BoundingBoxInput struct {
	X        *int `json:"x" validate:"required"`
	Y        *int `json:"y" validate:"required"`
	Width    *int `json:"width" validate:"required"`
	Height   *int `json:"height" validate:"required"`
	Rotation *int `json:"rotation" validate:"required"`
}

// AnnotationCreate is the payload for creating an annotation
type AnnotationCreate struct {
	ImageData     *string            `json:"image_data" validate:"required"`
	BoundingBoxes []BoundingBoxInput `json:"bounding_boxes" validate:"required,dive"`
	MetaInfo      *string            `json:"meta_info"`
}

// AnnotationUpdate is the payload for updating an annotation. A nil
// BoundingBoxes or MetaInfo leaves the stored value untouched.
type AnnotationUpdate struct {
	BoundingBoxes []BoundingBoxInput `json:"bounding_boxes" validate:"omitempty,dive"`
	MetaInfo      *string            `json:"meta_info"`
}

// Box converts a validated input into a stored box. Missing fields read as zero.
func (in BoundingBoxInput) Box() BoundingBox {
	return BoundingBox{
		X:        deref(in.X),
		Y:        deref(in.Y),
		Width:    deref(in.Width),
		Height:   deref(in.Height),
		Rotation: deref(in.Rotation),
	}
}

// ToBoxes converts a list of inputs, always returning a non-nil slice
func ToBoxes(inputs []BoundingBoxInput) []BoundingBox {
	boxes := make([]BoundingBox, 0, len(inputs))
	for _, in := range inputs {
		boxes = append(boxes, in.Box())
	}
	return boxes
}

// NewBoxInput builds an input from plain values
func NewBoxInput(x, y, width, height, rotation int) BoundingBoxInput {
	return BoundingBoxInput{X: &x, Y: &y, Width: &width, Height: &height, Rotation: &rotation}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
