package learning

import (
	"github.com/raykavin/stratfuse/pkg/fusion"
)

const (
	// Retention is the share of the current weight kept by a learning pass
	Retention = 0.3
	// Adoption is the share taken from the suggestion
	Adoption = 1 - Retention
)

// ApplyWeightOptimization blends the current weights toward a suggestion as
// old*0.3 + suggested*0.7. Strategies missing on either side count as zero. The
// blend of two normalized vectors is already normalized and is returned as is,
// anything else is renormalized.
func ApplyWeightOptimization(old, suggested fusion.WeightVector) fusion.WeightVector {
	if len(suggested) == 0 {
		return old.Clone()
	}

	out := make(fusion.WeightVector, len(old))
	for id, w := range old {
		out[id] = w * Retention
	}
	for id, w := range suggested {
		out[id] += w * Adoption
	}

	if out.Validate() != nil {
		return out.Normalize()
	}
	return out
}
