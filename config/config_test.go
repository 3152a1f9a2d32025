package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yml")
	test.That(t, os.WriteFile(path, []byte(content), 0o644), test.ShouldBeNil)
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "train_data: train.csv\ntrain_labels: labels.csv\n")
	hp, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hp.NumTrees, test.ShouldEqual, 10)
	test.That(t, hp.DecisionPriorHyperparam, test.ShouldEqual, 1.0)
	test.That(t, hp.ActiveNumQuerySteps, test.ShouldEqual, 1)
	test.That(t, hp.NumRuns, test.ShouldEqual, 1)
	test.That(t, hp.ActiveLearning, test.ShouldEqual, ActiveNone)
}

func TestLoadParsesAllOptions(t *testing.T) {
	path := writeConfig(t, `
num_trees: 25
discount_factor: 10
decision_prior_hyperparam: 2.5
max_samples_in_one_node: 100
confidence_measure: 2
density_exponent: 0.5
debug: true
number_of_samples_for_training: 500
active_learning: 2
active_init_set_size: 10
active_max_num_queries: 50
active_confidence_value: 0.99
active_batch_size: 20
active_buffer_size: 5
active_num_query_steps: 4
num_runs: 3
user_seed_config: 42
random: true
train_data: train.csv
train_labels: train_labels.csv
test_data: test.csv
test_labels: test_labels.csv
`)
	hp, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hp.NumTrees, test.ShouldEqual, 25)
	test.That(t, hp.DiscountFactor, test.ShouldEqual, 10.0)
	test.That(t, hp.DecisionPriorHyperparam, test.ShouldEqual, 2.5)
	test.That(t, hp.MaxSamplesInOneNode, test.ShouldEqual, 100)
	test.That(t, hp.ConfidenceMeasure, test.ShouldEqual, 2)
	test.That(t, hp.DensityExponent, test.ShouldEqual, 0.5)
	test.That(t, hp.Debug, test.ShouldBeTrue)
	test.That(t, hp.NumberOfSamplesForTraining, test.ShouldEqual, 500)
	test.That(t, hp.ActiveLearning, test.ShouldEqual, ActiveBuffered)
	test.That(t, hp.ActiveInitSetSize, test.ShouldEqual, 10)
	test.That(t, hp.ActiveMaxNumQueries, test.ShouldEqual, 50)
	test.That(t, hp.ActiveConfidenceValue, test.ShouldEqual, 0.99)
	test.That(t, hp.ActiveBatchSize, test.ShouldEqual, 20)
	test.That(t, hp.ActiveBufferSize, test.ShouldEqual, 5)
	test.That(t, hp.ActiveNumQuerySteps, test.ShouldEqual, 4)
	test.That(t, hp.NumRuns, test.ShouldEqual, 3)
	test.That(t, hp.UserSeedConfig, test.ShouldEqual, uint64(42))
	test.That(t, hp.Random, test.ShouldBeTrue)
	test.That(t, hp.TrainData, test.ShouldEqual, "train.csv")
	test.That(t, hp.TestLabels, test.ShouldEqual, "test_labels.csv")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("no-such-config.yml")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "num_trees: [not a number\n")
	_, err := Load(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateRejectsBadOptions(t *testing.T) {
	for _, content := range []string{
		"confidence_measure: 7\n",
		"active_learning: 3\n",
		"num_trees: -1\n",
		"decision_prior_hyperparam: -2\n",
		"active_learning: 2\n", // buffered without batch/buffer sizes
		"iterative: true\nrandom: true\n",
		"iterative: true\nsort_data: true\n",
	} {
		path := writeConfig(t, content)
		_, err := Load(path)
		test.That(t, err, test.ShouldNotBeNil)
	}
}
