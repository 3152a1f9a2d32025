/*
Package config loads the hyperparameters of a stream-based active
learning run from a YAML configuration file.
*/
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Active learning policies selectable through ActiveLearning.
const (
	// ActiveNone trains on every sample.
	ActiveNone = iota
	// ActiveThreshold trains on samples classified with confidence
	// below ActiveConfidenceValue.
	ActiveThreshold
	// ActiveBuffered buffers samples by confidence and trains on
	// the least confident ones of every batch.
	ActiveBuffered
)

/*
Hyperparameters collects every option a run reads: the forest
settings, the trainer settings and the dataset locations. Zero values
are valid and select the documented defaults.
*/
type Hyperparameters struct {
	// Forest settings.
	NumTrees                int     `yaml:"num_trees"`
	DiscountFactor          float64 `yaml:"discount_factor"`
	DecisionPriorHyperparam float64 `yaml:"decision_prior_hyperparam"`
	MaxSamplesInOneNode     int     `yaml:"max_samples_in_one_node"`
	ConfidenceMeasure       int     `yaml:"confidence_measure"`
	DensityExponent         float64 `yaml:"density_exponent"`
	Debug                   bool    `yaml:"debug"`

	// Trainer settings.
	NumberOfSamplesForTraining int     `yaml:"number_of_samples_for_training"`
	ActiveLearning             int     `yaml:"active_learning"`
	ActiveInitSetSize          int     `yaml:"active_init_set_size"`
	ActiveMaxNumQueries        int     `yaml:"active_max_num_queries"`
	ActiveConfidenceValue      float64 `yaml:"active_confidence_value"`
	ActiveBatchSize            int     `yaml:"active_batch_size"`
	ActiveBufferSize           int     `yaml:"active_buffer_size"`
	ActiveNumQuerySteps        int     `yaml:"active_num_query_steps"`
	NumRuns                    int     `yaml:"num_runs"`
	UserSeedConfig             uint64  `yaml:"user_seed_config"`

	// Dataset loader settings.
	Random      bool   `yaml:"random"`
	SortData    bool   `yaml:"sort_data"`
	Iterative   bool   `yaml:"iterative"`
	TrainData   string `yaml:"train_data"`
	TrainLabels string `yaml:"train_labels"`
	TestData    string `yaml:"test_data"`
	TestLabels  string `yaml:"test_labels"`
}

/*
Load reads and parses the YAML configuration file at the given path,
applies defaults and validates the result.
*/
func Load(path string) (*Hyperparameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %v", path, err)
	}
	hp := &Hyperparameters{}
	if err := yaml.Unmarshal(data, hp); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %v", path, err)
	}
	hp.applyDefaults()
	if err := hp.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %v", path, err)
	}
	return hp, nil
}

func (hp *Hyperparameters) applyDefaults() {
	if hp.NumTrees == 0 {
		hp.NumTrees = 10
	}
	if hp.DecisionPriorHyperparam == 0 {
		hp.DecisionPriorHyperparam = 1
	}
	if hp.ActiveNumQuerySteps == 0 {
		hp.ActiveNumQuerySteps = 1
	}
	if hp.NumRuns == 0 {
		hp.NumRuns = 1
	}
}

// Validate reports the first invalid or inconsistent option, if any.
func (hp *Hyperparameters) Validate() error {
	if hp.NumTrees < 1 {
		return fmt.Errorf("num_trees must be at least 1, got %d", hp.NumTrees)
	}
	if hp.ConfidenceMeasure < 0 || hp.ConfidenceMeasure > 3 {
		return fmt.Errorf("confidence_measure must be in 0..3, got %d", hp.ConfidenceMeasure)
	}
	if hp.ActiveLearning < ActiveNone || hp.ActiveLearning > ActiveBuffered {
		return fmt.Errorf("active_learning must be in 0..2, got %d", hp.ActiveLearning)
	}
	if hp.ActiveLearning == ActiveBuffered {
		if hp.ActiveBatchSize < 1 {
			return fmt.Errorf("active_batch_size must be at least 1, got %d", hp.ActiveBatchSize)
		}
		if hp.ActiveBufferSize < 1 {
			return fmt.Errorf("active_buffer_size must be at least 1, got %d", hp.ActiveBufferSize)
		}
	}
	if hp.ActiveNumQuerySteps < 1 {
		return fmt.Errorf("active_num_query_steps must be at least 1, got %d", hp.ActiveNumQuerySteps)
	}
	if hp.NumRuns < 1 {
		return fmt.Errorf("num_runs must be at least 1, got %d", hp.NumRuns)
	}
	if hp.DecisionPriorHyperparam <= 0 {
		return fmt.Errorf("decision_prior_hyperparam must be positive, got %v", hp.DecisionPriorHyperparam)
	}
	if hp.Iterative && (hp.Random || hp.SortData) {
		return fmt.Errorf("iterative loading cannot be combined with random or sort_data")
	}
	return nil
}
