/*
Package queue provides sample queues: streams that producers push
labeled samples onto and a trainer consumes in arrival order. Queues
model live sample sources, so unlike datasets they cannot be rewound.
*/
package queue

import (
	"context"
	"sync"

	"github.com/JonathanWenger/streambasedal/dataset"
)

/*
SampleQueue is a dataset.Stream that samples can be pushed onto.

The in-memory implementation returned by New is safe for concurrent
use by multiple goroutines.
*/
type SampleQueue interface {
	dataset.Stream
	// Push appends a sample to the queue.
	Push(context.Context, dataset.Sample) error
}

// QueueError represents an error related to sample queues.
type QueueError string

func (qe QueueError) Error() string {
	return string(qe)
}

/*
ErrCannotRewind is returned by ResetPosition: a queue delivers each
sample once.
*/
const ErrCannotRewind = QueueError("sample queues cannot be rewound")

type memQueue struct {
	lock       sync.Mutex
	samples    []dataset.Sample
	head       int
	numClasses int
	featureDim int
}

/*
New returns a queue backed only by the process memory, delivering
samples of the given dimensionality with the given initial class
count estimate.
*/
func New(featureDim, numClasses int) SampleQueue {
	return &memQueue{numClasses: numClasses, featureDim: featureDim}
}

func (mq *memQueue) Push(ctx context.Context, s dataset.Sample) error {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	if s.Y+1 > mq.numClasses {
		mq.numClasses = s.Y + 1
	}
	mq.samples = append(mq.samples, s)
	return nil
}

func (mq *memQueue) Next(ctx context.Context) (dataset.Sample, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Sample{}, err
	}
	mq.lock.Lock()
	defer mq.lock.Unlock()
	if mq.head >= len(mq.samples) {
		return dataset.Sample{}, dataset.ErrStreamExhausted
	}
	s := mq.samples[mq.head]
	mq.samples[mq.head] = dataset.Sample{}
	mq.head++
	if mq.head == len(mq.samples) {
		mq.samples = mq.samples[:0]
		mq.head = 0
	}
	return s, nil
}

func (mq *memQueue) NumSamples() int {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	return len(mq.samples) - mq.head
}

func (mq *memQueue) NumClasses() int {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	return mq.numClasses
}

func (mq *memQueue) FeatureDim() int {
	return mq.featureDim
}

func (mq *memQueue) ResetPosition(ctx context.Context) error {
	return ErrCannotRewind
}
