package mondrian

import (
	"math"

	"github.com/JonathanWenger/streambasedal/dataset"
)

/*
Forest is a fixed-size collection of independently grown Mondrian
trees sharing one Settings and one RandomGenerator. Updates visit the
trees in index order; with the single shared generator this order is
part of the forest's deterministic behavior for a given seed.
*/
type Forest struct {
	settings    *Settings
	rng         *RandomGenerator
	trees       []*Tree
	dataCounter int
}

/*
NewForest returns a forest of settings.NumTrees empty trees over
feature vectors of the given dimensionality. The effective discount
parameter is derived here from the discount factor and the feature
dimension.
*/
func NewForest(settings *Settings, featureDim int, rng *RandomGenerator) *Forest {
	settings.DiscountParam = settings.DiscountFactor * float64(featureDim)
	f := &Forest{settings: settings, rng: rng}
	for i := 0; i < settings.NumTrees; i++ {
		f.trees = append(f.trees, NewTree(settings, featureDim, rng))
	}
	return f
}

// Update trains every tree of the forest with the sample.
func (f *Forest) Update(s dataset.Sample) {
	f.dataCounter++
	for _, t := range f.trees {
		t.Update(s)
	}
}

/*
Classify returns the class with the largest averaged posterior for
the sample, -2 when all class probabilities are equal (no decision),
or -1 when no probability is positive.
*/
func (f *Forest) Classify(s dataset.Sample) int {
	var conf Confidence
	predProb := f.PredictProbability(s, &conf)
	return decideClass(predProb)
}

/*
ClassifyConfident returns the predicted class for the sample together
with a confidence score in [0, 1].
*/
func (f *Forest) ClassifyConfident(s dataset.Sample) (int, float64) {
	var conf Confidence
	predProb := f.PredictProbability(s, &conf)
	predClass := -1
	best := 0.0
	for i, p := range predProb {
		if p > best {
			best = p
			predClass = i
		}
	}
	return predClass, f.confidencePrediction(predProb, &conf)
}

/*
PredictProbability averages the per-class posteriors of all trees for
the sample. The normalized leaf density in conf is averaged across
trees the same way; the other confidence quantities are those of the
last tree visited.
*/
func (f *Forest) PredictProbability(s dataset.Sample, conf *Confidence) []float64 {
	numClasses := f.trees[0].numClasses
	predProb := make([]float64, numClasses)
	var densitySum float64
	for _, t := range f.trees {
		treeProb := make([]float64, numClasses)
		t.Classify(s, treeProb, conf)
		densitySum += conf.NormalizedDensity
		for i := range predProb {
			predProb[i] += treeProb[i]
		}
	}
	for i := range predProb {
		predProb[i] /= float64(len(f.trees))
	}
	conf.NormalizedDensity = densitySum / float64(len(f.trees))
	return predProb
}

/*
confidencePrediction turns an averaged posterior and the collected
confidence quantities into a scalar confidence: 1 - u * density^beta,
where u is the uncertainty selected by the configured measure.
*/
func (f *Forest) confidencePrediction(predProb []float64, conf *Confidence) float64 {
	var uncertainty float64
	switch f.settings.ConfidenceMeasure {
	case ConfidenceMargin:
		var first, second float64
		for _, p := range predProb {
			if p > first {
				second = first
				first = p
			} else if p > second {
				second = p
			}
		}
		uncertainty = 1 - first + second
	case ConfidenceEntropy:
		// Normalized entropy is only defined for two or more
		// classes; a single class carries no uncertainty.
		if len(predProb) > 1 {
			logK := math.Log(float64(len(predProb)))
			for _, p := range predProb {
				if p > 0 {
					uncertainty += -p * math.Log(p) / logK
				}
			}
		}
	case ConfidenceDensity:
		uncertainty = conf.NormalizedDensity
	case ConfidenceRandom:
		uncertainty = f.rng.Uniform(0, 1)
	}
	return 1 - uncertainty*math.Pow(conf.NormalizedDensity, f.settings.DensityExponent)
}

// DataCounter returns the number of samples the forest was trained on.
func (f *Forest) DataCounter() int {
	return f.dataCounter
}

// NumClasses returns the number of classes discovered so far.
func (f *Forest) NumClasses() int {
	return f.trees[0].numClasses
}

// Trees returns the forest's trees.
func (f *Forest) Trees() []*Tree {
	return f.trees
}
