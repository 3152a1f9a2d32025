package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonathanWenger/streambasedal/metrics"
	"github.com/aybabtme/uniplot/histogram"
	"gonum.org/v1/gonum/mat"
)

/*
printConfidenceReport prints the per-bucket counts of correct and
incorrect predictions and a terminal histogram of the raw confidence
values of the test pass.
*/
func printConfidenceReport(result *metrics.Result) {
	if result == nil {
		return
	}
	fmt.Println()
	fmt.Println("confidence buckets (correct / incorrect):")
	for i := 0; i < metrics.ConfidenceBuckets; i++ {
		lo := float64(i) * 0.05
		hi := lo + 0.05
		fmt.Printf("  [%.2f, %.2f): %6d / %6d\n", lo, hi, result.Confidence[i], result.ConfidenceFalse[i])
	}
	if len(result.ConfidenceValues) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("confidence distribution:")
	hist := histogram.Hist(metrics.ConfidenceBuckets, result.ConfidenceValues)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
		fmt.Fprintf(os.Stderr, "rendering confidence histogram: %v\n", err)
	}
}

/*
printAveragedResults prints the per-query-step results averaged over
all runs, followed by the averaged confusion matrix of the final
query step.
*/
func printAveragedResults(w io.Writer, results [][]*metrics.Result) {
	numRuns := len(results)
	if numRuns == 0 || len(results[0]) == 0 {
		return
	}
	numQuerySteps := len(results[0])
	fmt.Fprintln(w)
	fmt.Fprintf(w, "average results (%d runs):\n", numRuns)
	fmt.Fprintf(w, "%-12s%-12s%-12s%-12s%-12s%-12s\n",
		"Samples:", "Accuracy:", "MicroPrec:", "MacroPrec:", "MicroRec:", "MacroRec:")

	var finalConfusion *mat.Dense
	for j := 0; j < numQuerySteps; j++ {
		step := make([]*metrics.Result, 0, numRuns)
		for i := 0; i < numRuns; i++ {
			if results[i][j] != nil {
				step = append(step, results[i][j])
			}
		}
		avg, confusion := metrics.Average(step)
		fmt.Fprintf(w, "%-12.1f%-12.4f%-12.4f%-12.4f%-12.4f%-12.4f\n",
			avg.SamplesUsedForTraining, avg.Accuracy,
			avg.MicroAvgPrecision, avg.MacroAvgPrecision,
			avg.MicroAvgRecall, avg.MacroAvgRecall)
		if j == numQuerySteps-1 {
			finalConfusion = confusion
		}
	}
	if finalConfusion != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "average confusion matrix (predicted class vs. actual class):")
		fmt.Fprintf(w, "%v\n", mat.Formatted(finalConfusion, mat.Prefix(""), mat.Squeeze()))
	}
}
