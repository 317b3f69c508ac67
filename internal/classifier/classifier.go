// Package classifier wraps the external waste-type classification service.
package classifier

import (
	"context"
	"fmt"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
)

type Classification struct {
	Category            models.Category
	Confidence          float64
	DisposalInstruction string
}

// Classifier returns the waste category of an image. Every failure is
// reported as apperr.ErrClassificationUnavailable.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Classification, error)
}

var disposal = map[models.Category]string{
	models.CategoryPlastic: "Clean and place in recycling bin. Check number on bottom.",
	models.CategoryGlass:   "Rinse and place in glass recycling container.",
	models.CategoryPaper:   "Ensure dry and place in paper recycling bin.",
	models.CategoryMetal:   "Clean and place in metal recycling container.",
	models.CategoryOrganic: "Compost in organic waste bin or home composter.",
}

// DisposalInstruction returns the fixed disposal text for category.
func DisposalInstruction(category models.Category) (string, bool) {
	s, ok := disposal[category]
	return s, ok
}

func classification(category models.Category, confidence float64) (Classification, error) {
	instruction, ok := DisposalInstruction(category)
	if !ok {
		return Classification{}, fmt.Errorf("%w: unknown category %q", apperr.ErrClassificationUnavailable, category)
	}

	return Classification{Category: category, Confidence: confidence, DisposalInstruction: instruction}, nil
}
