package dataset

import (
	"context"
	"testing"

	"go.viam.com/test"
)

func testSamples() []Sample {
	return []Sample{
		{X: []float64{0.1, 0.2}, Y: 1},
		{X: []float64{0.3, 0.4}, Y: 0},
		{X: []float64{0.5, 0.6}, Y: 2},
		{X: []float64{0.7, 0.8}, Y: 0},
	}
}

func TestDatasetDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	ds := New(testSamples(), nil)
	test.That(t, ds.NumSamples(), test.ShouldEqual, 4)
	test.That(t, ds.NumClasses(), test.ShouldEqual, 3)
	test.That(t, ds.FeatureDim(), test.ShouldEqual, 2)

	for i := 0; i < 4; i++ {
		s, err := ds.Next(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s, test.ShouldResemble, testSamples()[i])
	}
	_, err := ds.Next(ctx)
	test.That(t, err, test.ShouldEqual, ErrStreamExhausted)

	test.That(t, ds.ResetPosition(ctx), test.ShouldBeNil)
	s, err := ds.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldResemble, testSamples()[0])
}

func TestDatasetSortsByLabel(t *testing.T) {
	ds := New(testSamples(), &Options{SortData: true})
	labels := make([]int, 0, 4)
	for _, s := range ds.Samples() {
		labels = append(labels, s.Y)
	}
	test.That(t, labels, test.ShouldResemble, []int{0, 0, 1, 2})
}

func TestDatasetShuffleIsSeeded(t *testing.T) {
	a := New(testSamples(), &Options{Random: true, Seed: 5})
	b := New(testSamples(), &Options{Random: true, Seed: 5})
	test.That(t, a.Samples(), test.ShouldResemble, b.Samples())
}

func TestEmptyDataset(t *testing.T) {
	ds := New(nil, nil)
	test.That(t, ds.NumSamples(), test.ShouldEqual, 0)
	test.That(t, ds.NumClasses(), test.ShouldEqual, 0)
	test.That(t, ds.FeatureDim(), test.ShouldEqual, 0)
	_, err := ds.Next(context.Background())
	test.That(t, err, test.ShouldEqual, ErrStreamExhausted)
}
