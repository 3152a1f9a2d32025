/*
Package experimenter drives Mondrian forests through training and
testing passes over sample streams, including the stream-based active
learning policies.
*/
package experimenter

import (
	"context"
	"fmt"
	"time"

	"github.com/JonathanWenger/streambasedal/config"
	"github.com/JonathanWenger/streambasedal/dataset"
	"github.com/JonathanWenger/streambasedal/metrics"
	"github.com/JonathanWenger/streambasedal/mondrian"
	"github.com/edaniels/golog"
)

const progressInterval = 1000

/*
Experimenter runs training and testing passes against one forest and
accumulates their outcome in a metrics.Result.
*/
type Experimenter struct {
	confValue bool
	logger    golog.Logger
	result    *metrics.Result
}

/*
New returns an experimenter. When confidence is set, the testing pass
scores every prediction and fills the confidence histograms of the
result.
*/
func New(confidence bool, logger golog.Logger) *Experimenter {
	return &Experimenter{
		confValue: confidence,
		logger:    logger,
		result:    &metrics.Result{},
	}
}

// Result returns the accumulated result of the passes run so far.
func (e *Experimenter) Result() *metrics.Result {
	return e.result
}

/*
Train updates the forest with every sample of the stream, up to
number_of_samples_for_training when that is positive.
*/
func (e *Experimenter) Train(ctx context.Context, forest *mondrian.Forest, stream dataset.Stream, hp *config.Hyperparameters) error {
	if stream.NumSamples() < 1 {
		return fmt.Errorf("training: %v", dataset.ErrEmptyStream)
	}
	numTraining := stream.NumSamples()
	if hp.NumberOfSamplesForTraining > 0 {
		numTraining = hp.NumberOfSamplesForTraining
	}
	e.logger.Infof("training on up to %d samples", numTraining)
	start := time.Now()
	for i := 0; i < numTraining; i++ {
		s, err := stream.Next(ctx)
		if err == dataset.ErrStreamExhausted {
			break
		}
		if err != nil {
			return fmt.Errorf("training: %v", err)
		}
		forest.Update(s)
		e.result.SamplesUsedForTraining++
		e.progress(i + 1)
	}
	e.result.TrainingTime += time.Since(start)
	e.logger.Infof("finished training after %v", time.Since(start))
	return nil
}

/*
TrainActive trains the forest with one of the active learning
policies. Both policies train unconditionally on the first
active_init_set_size samples. The threshold policy then trains on
every sample classified with confidence below
active_confidence_value; the buffered policy collects samples sorted
by ascending confidence and, every active_batch_size samples, trains
on the active_buffer_size least confident ones. Training stops once
active_max_num_queries samples have been used (when positive).
*/
func (e *Experimenter) TrainActive(ctx context.Context, forest *mondrian.Forest, stream dataset.Stream, hp *config.Hyperparameters) error {
	if stream.NumSamples() < 1 {
		return fmt.Errorf("active training: %v", dataset.ErrEmptyStream)
	}
	numTraining := stream.NumSamples()
	if hp.NumberOfSamplesForTraining > 0 {
		numTraining = hp.NumberOfSamplesForTraining
	}
	e.logger.Infof("active training (policy %d) on up to %d samples", hp.ActiveLearning, numTraining)
	start := time.Now()
	var err error
	switch hp.ActiveLearning {
	case config.ActiveThreshold:
		err = e.trainThreshold(ctx, forest, stream, hp, numTraining)
	case config.ActiveBuffered:
		err = e.trainBuffered(ctx, forest, stream, hp, numTraining)
	default:
		err = fmt.Errorf("active training: unknown policy %d", hp.ActiveLearning)
	}
	if err != nil {
		return err
	}
	e.result.TrainingTime += time.Since(start)
	e.logger.Infof("finished active training after %v, %d samples used", time.Since(start), e.result.SamplesUsedForTraining)
	return nil
}

func (e *Experimenter) trainThreshold(ctx context.Context, forest *mondrian.Forest, stream dataset.Stream, hp *config.Hyperparameters, numTraining int) error {
	for i := 0; i < numTraining; i++ {
		s, err := stream.Next(ctx)
		if err == dataset.ErrStreamExhausted {
			break
		}
		if err != nil {
			return fmt.Errorf("active training: %v", err)
		}
		if forest.DataCounter() < hp.ActiveInitSetSize {
			forest.Update(s)
			e.result.SamplesUsedForTraining++
			if e.reachedMaxQueries(hp) {
				break
			}
			continue
		}
		if e.reachedMaxQueries(hp) {
			break
		}
		if _, confidence := forest.ClassifyConfident(s); confidence < hp.ActiveConfidenceValue {
			forest.Update(s)
			e.result.SamplesUsedForTraining++
			if e.reachedMaxQueries(hp) {
				break
			}
		}
		e.progress(i + 1)
	}
	return nil
}

type bufferedSample struct {
	sample     dataset.Sample
	confidence float64
}

func (e *Experimenter) trainBuffered(ctx context.Context, forest *mondrian.Forest, stream dataset.Stream, hp *config.Hyperparameters, numTraining int) error {
	var buffer []bufferedSample
	flush := func() {
		n := hp.ActiveBufferSize
		if n > len(buffer) {
			n = len(buffer)
		}
		for i := 0; i < n; i++ {
			forest.Update(buffer[i].sample)
			e.result.SamplesUsedForTraining++
			if e.reachedMaxQueries(hp) {
				break
			}
		}
		buffer = buffer[:0]
	}
	for i := 0; i < numTraining; i++ {
		s, err := stream.Next(ctx)
		if err == dataset.ErrStreamExhausted {
			break
		}
		if err != nil {
			return fmt.Errorf("active training: %v", err)
		}
		if forest.DataCounter() < hp.ActiveInitSetSize {
			forest.Update(s)
			e.result.SamplesUsedForTraining++
			if e.reachedMaxQueries(hp) {
				break
			}
			continue
		}
		if e.reachedMaxQueries(hp) {
			break
		}
		_, confidence := forest.ClassifyConfident(s)
		buffer = insertByConfidence(buffer, bufferedSample{s, confidence})
		if len(buffer) >= hp.ActiveBatchSize {
			flush()
			if e.reachedMaxQueries(hp) {
				break
			}
		}
		e.progress(i + 1)
	}
	if len(buffer) > 0 && !e.reachedMaxQueries(hp) {
		flush()
	}
	return nil
}

/*
insertByConfidence inserts the sample into the buffer keeping it
sorted by ascending confidence. The buffer stays small, so a linear
scan is enough.
*/
func insertByConfidence(buffer []bufferedSample, bs bufferedSample) []bufferedSample {
	at := len(buffer)
	for i, b := range buffer {
		if bs.confidence < b.confidence {
			at = i
			break
		}
	}
	buffer = append(buffer, bufferedSample{})
	copy(buffer[at+1:], buffer[at:])
	buffer[at] = bs
	return buffer
}

func (e *Experimenter) reachedMaxQueries(hp *config.Hyperparameters) bool {
	return hp.ActiveMaxNumQueries > 0 && e.result.SamplesUsedForTraining >= hp.ActiveMaxNumQueries
}

/*
Classify runs the forest over the test stream, recording one
prediction per sample (with confidence buckets when enabled), then
computes the metrics of the pass and returns the accuracy.
*/
func (e *Experimenter) Classify(ctx context.Context, forest *mondrian.Forest, stream dataset.Stream, hp *config.Hyperparameters) (float64, error) {
	if stream.NumSamples() < 1 {
		return 0, fmt.Errorf("testing: %v", dataset.ErrEmptyStream)
	}
	if err := stream.ResetPosition(ctx); err != nil {
		return 0, fmt.Errorf("testing: %v", err)
	}
	e.logger.Infof("testing on %d samples", stream.NumSamples())
	start := time.Now()
	for i := 0; i < stream.NumSamples(); i++ {
		s, err := stream.Next(ctx)
		if err == dataset.ErrStreamExhausted {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("testing: %v", err)
		}
		var predClass int
		if e.confValue {
			var confidence float64
			predClass, confidence = forest.ClassifyConfident(s)
			bucket := metrics.ConfidenceBucket(confidence)
			if predClass == s.Y {
				e.result.Confidence[bucket]++
			} else {
				e.result.ConfidenceFalse[bucket]++
			}
			e.result.ConfidenceValues = append(e.result.ConfidenceValues, confidence)
		} else {
			predClass = forest.Classify(s)
		}
		e.result.Predictions = append(e.result.Predictions, predClass)
		e.progress(i + 1)
	}
	e.result.TestingTime += time.Since(start)
	if err := metrics.Compute(ctx, stream, e.result); err != nil {
		return 0, fmt.Errorf("testing: %v", err)
	}
	e.logger.Infof("finished testing after %v, accuracy %.4f", time.Since(start), e.result.Accuracy)
	return e.result.Accuracy, nil
}

func (e *Experimenter) progress(done int) {
	if done%progressInterval == 0 {
		e.logger.Debugf("processed %d samples", done)
	}
}
