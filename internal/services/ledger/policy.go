package ledger

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
)

// PointRange is the inclusive reward range of one category.
type PointRange struct {
	Min, Max int64
}

var pointRanges = map[models.Category]PointRange{
	models.CategoryPlastic: {10, 15},
	models.CategoryGlass:   {12, 18},
	models.CategoryPaper:   {5, 10},
	models.CategoryMetal:   {15, 20},
	models.CategoryOrganic: {5, 8},
}

// PointsPolicy maps a category to the points of one scan. Without a seed it
// awards the midpoint of the range, (Min+Max)/2 rounded down. With a seed it
// draws uniformly from the range using a private generator, so a fixed seed
// replays the same sequence.
type PointsPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPointsPolicy returns the midpoint policy for seed 0 and a seeded draw
// otherwise.
func NewPointsPolicy(seed int64) *PointsPolicy {
	if seed == 0 {
		return &PointsPolicy{}
	}
	return &PointsPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *PointsPolicy) Points(category models.Category) (int64, error) {
	r, ok := pointRanges[category]
	if !ok {
		return 0, apperr.Invalid(fmt.Sprintf("no reward range for category %q", category))
	}

	if p == nil || p.rng == nil {
		return (r.Min + r.Max) / 2, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + p.rng.Int63n(r.Max-r.Min+1), nil
}

// RangeOf returns the reward range of category.
func RangeOf(category models.Category) (PointRange, bool) {
	r, ok := pointRanges[category]
	return r, ok
}

// co2PerPoint is the estimated CO2 saving, in kilograms, behind one point.
const co2PerPoint = 0.05

type Impact struct {
	CO2SavedKg float64 `json:"co2_saved_kg"`
	Summary    string  `json:"summary"`
}

// ImpactOf estimates the environmental effect of points: 0.05 kg CO2 each.
func ImpactOf(points int64) Impact {
	kg := float64(points) * co2PerPoint
	return Impact{
		CO2SavedKg: kg,
		Summary:    fmt.Sprintf("Saved approximately %.2f kg CO2", kg),
	}
}
