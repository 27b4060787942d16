package repository

import (
	"encoding/json"
	"fmt"

	"github.com/anime-shed/image-annotator-go/pkg/models"
)

// encodeBoxes serializes a box list to the JSON text stored in the database
func encodeBoxes(boxes []models.BoundingBox) (string, error) {
	if boxes == nil {
		boxes = []models.BoundingBox{}
	}
	data, err := json.Marshal(boxes)
	if err != nil {
		return "", fmt.Errorf("encode bounding boxes: %w", err)
	}
	return string(data), nil
}

func decodeBoxes(text string) ([]models.BoundingBox, error) {
	boxes := []models.BoundingBox{}
	if text == "" {
		return boxes, nil
	}
	if err := json.Unmarshal([]byte(text), &boxes); err != nil {
		return nil, fmt.Errorf("decode bounding boxes: %w", err)
	}
	if boxes == nil {
		boxes = []models.BoundingBox{}
	}
	return boxes, nil
}
