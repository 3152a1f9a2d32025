package mondrian

import "fmt"

// Confidence measures selectable through Settings.ConfidenceMeasure.
const (
	// ConfidenceMargin derives uncertainty from the gap between the
	// best and second best class probabilities.
	ConfidenceMargin = iota
	// ConfidenceEntropy derives uncertainty from the normalized
	// entropy of the posterior; needs at least two classes.
	ConfidenceEntropy
	// ConfidenceDensity uses the normalized leaf density directly.
	ConfidenceDensity
	// ConfidenceRandom draws uncertainty uniformly at random, as a
	// baseline for comparison.
	ConfidenceRandom
)

/*
Settings holds the hyperparameters shared by all trees of a forest.
*/
type Settings struct {
	// NumTrees is the fixed number of trees in the forest.
	NumTrees int
	// DiscountFactor scales the smoothing discount; the effective
	// discount parameter is DiscountFactor * featureDim.
	DiscountFactor float64
	// DiscountParam is the effective discount parameter. NewForest
	// fills it in from DiscountFactor and the feature dimension.
	DiscountParam float64
	// DecisionPriorHyperparam is the H > 0 prior weight of the
	// per-split decision distributions.
	DecisionPriorHyperparam float64
	// MaxSamplesInOneNode, when positive, forces a paused node
	// holding more than this many samples to become splittable
	// again.
	MaxSamplesInOneNode int
	// ConfidenceMeasure selects the uncertainty scalar, one of the
	// Confidence* constants.
	ConfidenceMeasure int
	// DensityExponent is the exponent applied to the normalized
	// leaf density inside the confidence score.
	DensityExponent float64
	// Debug enables invariant checks that panic on violation.
	Debug bool
}

// Validate reports the first invalid setting, if any.
func (s *Settings) Validate() error {
	if s.NumTrees < 1 {
		return fmt.Errorf("settings: num_trees must be at least 1, got %d", s.NumTrees)
	}
	if s.DecisionPriorHyperparam <= 0 {
		return fmt.Errorf("settings: decision_prior_hyperparam must be positive, got %v", s.DecisionPriorHyperparam)
	}
	if s.ConfidenceMeasure < ConfidenceMargin || s.ConfidenceMeasure > ConfidenceRandom {
		return fmt.Errorf("settings: unknown confidence_measure %d", s.ConfidenceMeasure)
	}
	return nil
}
