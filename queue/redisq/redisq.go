/*
Package redisq provides a sample queue backed by a redis list, so
that producers on other hosts can feed a training stream.
*/
package redisq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonathanWenger/streambasedal/dataset"
	"github.com/JonathanWenger/streambasedal/queue"
	redis "gopkg.in/redis.v5"
)

/*
Queue is a queue.SampleQueue that uses the given redis client as a
backend. Samples are JSON-encoded onto a single redis list, pushed at
the tail and popped from the head, so the queue is secure for
concurrent use by multiple producers and one consumer.
*/
type Queue struct {
	rc         *redis.Client
	key        string
	featureDim int
	numClasses int
}

/*
New returns a queue storing its samples on the redis list with the
given key. featureDim and numClasses describe the samples the
producers will push; both may be zero, in which case they are learned
from the delivered samples.
*/
func New(rc *redis.Client, key string, featureDim, numClasses int) *Queue {
	return &Queue{rc: rc, key: key, featureDim: featureDim, numClasses: numClasses}
}

// Push appends a sample to the tail of the list.
func (q *Queue) Push(ctx context.Context, s dataset.Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding sample for queue %q: %v", q.key, err)
	}
	if err := q.rc.RPush(q.key, string(data)).Err(); err != nil {
		return fmt.Errorf("pushing sample to queue %q: %v", q.key, err)
	}
	return nil
}

/*
Next pops the sample at the head of the list. An empty list counts as
an exhausted stream.
*/
func (q *Queue) Next(ctx context.Context) (dataset.Sample, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Sample{}, err
	}
	data, err := q.rc.LPop(q.key).Result()
	if err == redis.Nil {
		return dataset.Sample{}, dataset.ErrStreamExhausted
	}
	if err != nil {
		return dataset.Sample{}, fmt.Errorf("popping sample from queue %q: %v", q.key, err)
	}
	var s dataset.Sample
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return dataset.Sample{}, fmt.Errorf("decoding sample from queue %q: %v", q.key, err)
	}
	if q.featureDim == 0 {
		q.featureDim = len(s.X)
	} else if len(s.X) != q.featureDim {
		return dataset.Sample{}, fmt.Errorf("queue %q delivered a sample with %d features, expected %d", q.key, len(s.X), q.featureDim)
	}
	if s.Y+1 > q.numClasses {
		q.numClasses = s.Y + 1
	}
	return s, nil
}

// NumSamples returns the number of samples currently queued.
func (q *Queue) NumSamples() int {
	n, err := q.rc.LLen(q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// NumClasses returns the largest label seen so far plus one, or the
// initial class count when that is larger.
func (q *Queue) NumClasses() int {
	return q.numClasses
}

/*
FeatureDim returns the dimensionality of the queued samples, peeking
at the head of the list when no sample has been seen yet.
*/
func (q *Queue) FeatureDim() int {
	if q.featureDim == 0 {
		data, err := q.rc.LIndex(q.key, 0).Result()
		if err != nil {
			return 0
		}
		var s dataset.Sample
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return 0
		}
		q.featureDim = len(s.X)
	}
	return q.featureDim
}

// ResetPosition always fails: popped samples are gone.
func (q *Queue) ResetPosition(ctx context.Context) error {
	return queue.ErrCannotRewind
}
