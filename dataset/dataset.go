/*
Package dataset provides the sample types and streams Mondrian forests
are trained on and tested against.
*/
package dataset

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
)

/*
Sample is a single labeled data point: a fixed-length vector of
real-valued features and a non-negative integer class label.
*/
type Sample struct {
	X []float64
	Y int
}

func (s Sample) String() string {
	return fmt.Sprintf("[x: %v y: %d]", s.X, s.Y)
}

/*
Stream represents a source of samples that can be consumed one at a
time. NumClasses is an initial estimate: streams may deliver labels
beyond it and consumers are expected to grow their class range.

All its methods that touch the backend take a context.Context that
implementations may use to allow timeouts and cancellations.
*/
type Stream interface {
	// Next returns the next sample in the stream. It returns
	// ErrStreamExhausted when no samples are left.
	Next(context.Context) (Sample, error)
	// NumSamples returns the total number of samples the stream
	// will deliver before exhaustion.
	NumSamples() int
	// NumClasses returns the size of the class range known to the
	// stream: one more than the largest label it knows of.
	NumClasses() int
	// FeatureDim returns the dimensionality of the sample feature
	// vectors.
	FeatureDim() int
	// ResetPosition rewinds the stream to its first sample.
	// Implementations that cannot rewind return an error.
	ResetPosition(context.Context) error
}

// StreamError represents an error related to sample streams.
type StreamError string

func (se StreamError) Error() string {
	return string(se)
}

/*
ErrStreamExhausted is the error returned by the Next method of a
Stream when all its samples have been consumed.
*/
const ErrStreamExhausted = StreamError("sample stream exhausted")

/*
ErrEmptyStream is the error returned when a dataset with no samples is
used for training or testing.
*/
const ErrEmptyStream = StreamError("dataset contains no samples")

/*
Options control the order in which an in-memory Dataset delivers its
samples.
*/
type Options struct {
	// Random shuffles the samples once at construction, using the
	// given Seed.
	Random bool
	// SortData orders the samples by ascending label.
	SortData bool
	// Seed for the shuffle; only read when Random is set.
	Seed uint64
}

/*
Dataset is an in-memory Stream over a slice of samples. It supports
rewinding and optional shuffling or label-sorting of the sample order
at construction time.
*/
type Dataset struct {
	samples    []Sample
	pos        int
	numClasses int
	featureDim int
}

/*
New takes a slice of samples and options and returns a Dataset
delivering them. The number of classes is derived from the largest
label present, the feature dimension from the first sample.
*/
func New(samples []Sample, opts *Options) *Dataset {
	ds := &Dataset{samples: samples}
	for _, s := range samples {
		if s.Y+1 > ds.numClasses {
			ds.numClasses = s.Y + 1
		}
	}
	if len(samples) > 0 {
		ds.featureDim = len(samples[0].X)
	}
	if opts != nil && opts.SortData {
		sort.SliceStable(ds.samples, func(i, j int) bool {
			return ds.samples[i].Y < ds.samples[j].Y
		})
	}
	if opts != nil && opts.Random {
		rnd := rand.New(rand.NewSource(opts.Seed))
		rnd.Shuffle(len(ds.samples), func(i, j int) {
			ds.samples[i], ds.samples[j] = ds.samples[j], ds.samples[i]
		})
	}
	return ds
}

// Next returns the next sample or ErrStreamExhausted.
func (ds *Dataset) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if ds.pos >= len(ds.samples) {
		return Sample{}, ErrStreamExhausted
	}
	s := ds.samples[ds.pos]
	ds.pos++
	return s, nil
}

// NumSamples returns the number of samples in the dataset.
func (ds *Dataset) NumSamples() int {
	return len(ds.samples)
}

// NumClasses returns the largest label in the dataset, plus one.
func (ds *Dataset) NumClasses() int {
	return ds.numClasses
}

// FeatureDim returns the dimensionality of the dataset's samples.
func (ds *Dataset) FeatureDim() int {
	return ds.featureDim
}

// ResetPosition rewinds the dataset to its first sample.
func (ds *Dataset) ResetPosition(ctx context.Context) error {
	ds.pos = 0
	return nil
}

// Samples returns the backing sample slice in delivery order.
func (ds *Dataset) Samples() []Sample {
	return ds.samples
}
