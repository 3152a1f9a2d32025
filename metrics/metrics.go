/*
Package metrics evaluates the predictions of a classifier run:
accuracy, per-class precision and recall with micro and macro
averages, a normalized confusion matrix and the confidence histogram
of the test pass.
*/
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/JonathanWenger/streambasedal/dataset"
	"gonum.org/v1/gonum/mat"
)

// ConfidenceBuckets is the number of equal-width confidence bins
// over [0, 1].
const ConfidenceBuckets = 20

/*
Result collects everything a single train/test run produces.
*/
type Result struct {
	// Predictions holds one predicted class per test sample, in
	// stream order. Sentinels -1 and -2 mark undecided predictions.
	Predictions []int
	// CorrectPrediction holds 1 for each correctly predicted test
	// sample and 0 otherwise.
	CorrectPrediction []int
	// Confidence and ConfidenceFalse count correct and incorrect
	// predictions per confidence bucket.
	Confidence      [ConfidenceBuckets]int
	ConfidenceFalse [ConfidenceBuckets]int
	// ConfidenceValues holds the raw confidence of every test
	// prediction, when confidence scoring was enabled.
	ConfidenceValues []float64

	SamplesUsedForTraining int
	TrainingTime           time.Duration
	TestingTime            time.Duration

	Accuracy          float64
	TruePositives     []float64
	FalsePositives    []float64
	FalseNegatives    []float64
	TrueNegatives     []float64
	Precision         []float64
	Recall            []float64
	MicroAvgPrecision float64
	MicroAvgRecall    float64
	MacroAvgPrecision float64
	MacroAvgRecall    float64
	// ConfusionMatrix is indexed (predicted class, actual class)
	// and normalized by the number of test samples.
	ConfusionMatrix *mat.Dense
}

/*
ConfidenceBucket maps a confidence value to its bucket index,
clamping strictly to [0, ConfidenceBuckets-1]. Out-of-range values
are folded into the boundary buckets rather than reported.
*/
func ConfidenceBucket(confidence float64) int {
	bucket := int(confidence * 100 / 5)
	if bucket < 0 {
		return 0
	}
	if bucket >= ConfidenceBuckets {
		return ConfidenceBuckets - 1
	}
	return bucket
}

/*
Compute evaluates the predictions recorded in the result against the
labels of the test stream, filling in the accuracy, confusion matrix
and precision/recall aggregates. The stream is rewound first and read
in the order the predictions were made.
*/
func Compute(ctx context.Context, testStream dataset.Stream, result *Result) error {
	if err := testStream.ResetPosition(ctx); err != nil {
		return fmt.Errorf("rewinding test stream: %v", err)
	}
	numClasses := testStream.NumClasses()
	result.TruePositives = make([]float64, numClasses)
	result.FalsePositives = make([]float64, numClasses)
	result.FalseNegatives = make([]float64, numClasses)
	result.TrueNegatives = make([]float64, numClasses)
	result.Precision = make([]float64, numClasses)
	result.Recall = make([]float64, numClasses)
	result.ConfusionMatrix = mat.NewDense(numClasses, numClasses, nil)
	result.CorrectPrediction = result.CorrectPrediction[:0]

	sameElements := 0
	for _, pred := range result.Predictions {
		s, err := testStream.Next(ctx)
		if err != nil {
			return fmt.Errorf("reading test stream: %v", err)
		}
		if pred == s.Y {
			sameElements++
			result.CorrectPrediction = append(result.CorrectPrediction, 1)
			result.TruePositives[s.Y]++
			for i := 0; i < numClasses; i++ {
				if i != s.Y {
					result.TrueNegatives[i]++
				}
			}
		} else {
			result.CorrectPrediction = append(result.CorrectPrediction, 0)
			result.FalseNegatives[s.Y]++
			// Undecided predictions and classes the test stream
			// never saw carry no predicted class: they only
			// count against the true class.
			if pred >= 0 && pred < numClasses {
				result.FalsePositives[pred]++
			}
		}
		if pred >= 0 && pred < numClasses {
			result.ConfusionMatrix.Set(pred, s.Y, result.ConfusionMatrix.At(pred, s.Y)+1)
		}
	}
	if n := len(result.Predictions); n > 0 {
		result.ConfusionMatrix.Scale(1/float64(n), result.ConfusionMatrix)
		result.Accuracy = float64(sameElements) / float64(n)
	}

	var tpSum, fpSum, fnSum float64
	for i := 0; i < numClasses; i++ {
		tp, fp, fn := result.TruePositives[i], result.FalsePositives[i], result.FalseNegatives[i]
		if tp+fp > 0 {
			result.Precision[i] = tp / (tp + fp)
		}
		if tp+fn > 0 {
			result.Recall[i] = tp / (tp + fn)
		}
		tpSum += tp
		fpSum += fp
		fnSum += fn
	}
	if tpSum+fpSum > 0 {
		result.MicroAvgPrecision = tpSum / (tpSum + fpSum)
	}
	if tpSum+fnSum > 0 {
		result.MicroAvgRecall = tpSum / (tpSum + fnSum)
	}
	if numClasses > 0 {
		var precSum, recSum float64
		for i := 0; i < numClasses; i++ {
			precSum += result.Precision[i]
			recSum += result.Recall[i]
		}
		result.MacroAvgPrecision = precSum / float64(numClasses)
		result.MacroAvgRecall = recSum / float64(numClasses)
	}
	return nil
}

/*
Averaged summarizes one query step averaged over runs.
*/
type Averaged struct {
	SamplesUsedForTraining float64
	Accuracy               float64
	MicroAvgPrecision      float64
	MacroAvgPrecision      float64
	MicroAvgRecall         float64
	MacroAvgRecall         float64
}

/*
Average reduces the per-run results of one query step to their means.
Results without a confusion matrix contribute zeros to the matrix
average.
*/
func Average(results []*Result) (Averaged, *mat.Dense) {
	var avg Averaged
	if len(results) == 0 {
		return avg, nil
	}
	n := float64(len(results))
	var confusion *mat.Dense
	for _, r := range results {
		avg.SamplesUsedForTraining += float64(r.SamplesUsedForTraining) / n
		avg.Accuracy += r.Accuracy / n
		avg.MicroAvgPrecision += r.MicroAvgPrecision / n
		avg.MacroAvgPrecision += r.MacroAvgPrecision / n
		avg.MicroAvgRecall += r.MicroAvgRecall / n
		avg.MacroAvgRecall += r.MacroAvgRecall / n
		if r.ConfusionMatrix == nil {
			continue
		}
		if confusion == nil {
			rows, cols := r.ConfusionMatrix.Dims()
			confusion = mat.NewDense(rows, cols, nil)
		}
		var scaled mat.Dense
		scaled.Scale(1/n, r.ConfusionMatrix)
		confusion.Add(confusion, &scaled)
	}
	return avg, confusion
}
