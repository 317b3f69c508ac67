package models

import "time"

type Category string

const (
	CategoryPlastic Category = "plastic"
	CategoryGlass   Category = "glass"
	CategoryPaper   Category = "paper"
	CategoryMetal   Category = "metal"
	CategoryOrganic Category = "organic"
)

// Categories lists every category the classifier may return, in a fixed order.
var Categories = []Category{CategoryPlastic, CategoryGlass, CategoryPaper, CategoryMetal, CategoryOrganic}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// WasteItem records one scan event. It is never updated or deleted.
type WasteItem struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Category       Category  `json:"item_type"`
	DisposalMethod string    `json:"disposal_method"`
	PointsEarned   int64     `json:"eco_points_earned"`
	ImageRef       *string   `json:"image_url,omitempty"`
	ScannedAt      time.Time `json:"scanned_at"`
}
