package main

import (
	"context"
	"fmt"
	"os"

	"github.com/JonathanWenger/streambasedal/config"
	"github.com/JonathanWenger/streambasedal/experimenter"
	"github.com/JonathanWenger/streambasedal/metrics"
	"github.com/JonathanWenger/streambasedal/mondrian"
	"github.com/edaniels/golog"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	training   bool
	testing    bool
	confValue  bool
	configPath string
	verbose    bool
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	cmdConfig := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "streambasedal",
		Short: "streambasedal is an online Mondrian forest classifier with stream-based active learning",
		Long: `An online Mondrian forest classifier: trains all trees sample by sample on
a stream of labeled samples, optionally querying labels only for low-confidence samples,
and evaluates predictions against a test stream.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdConfig.Validate(); err != nil {
				return err
			}
			return run(cmdConfig)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&(cmdConfig.training), "train", false, "train the classifier")
	rootCmd.PersistentFlags().BoolVar(&(cmdConfig.testing), "test", false, "test the classifier")
	rootCmd.PersistentFlags().BoolVar(&(cmdConfig.confValue), "confidence", false, "calculate a confidence value for each prediction")
	rootCmd.PersistentFlags().StringVarP(&(cmdConfig.configPath), "config", "c", "", "path to the config file (required)")
	rootCmd.PersistentFlags().BoolVarP(&(cmdConfig.verbose), "verbose", "v", false, "enable debug logging")
	return rootCmd
}

func (rcc *rootCmdConfig) Validate() error {
	if rcc.configPath == "" {
		return fmt.Errorf("no config file selected, use -c PATH")
	}
	if !rcc.training && !rcc.testing {
		return fmt.Errorf("nothing to do: set --train and/or --test")
	}
	return nil
}

func (rcc *rootCmdConfig) logger() golog.Logger {
	if rcc.verbose {
		return golog.NewDevelopmentLogger("streambasedal")
	}
	return golog.NewLogger("streambasedal")
}

func run(rcc *rootCmdConfig) error {
	ctx := context.Background()
	logger := rcc.logger()

	hp, err := config.Load(rcc.configPath)
	if err != nil {
		return err
	}
	rng := mondrian.NewRandomGenerator(hp.UserSeedConfig)

	streams, err := openStreams(ctx, rcc, hp, logger)
	if err != nil {
		return err
	}
	defer streams.Close()

	featureDim := streams.FeatureDim()
	if featureDim == 0 {
		return fmt.Errorf("could not determine the feature dimension of the dataset")
	}

	maxNumQueries := hp.ActiveMaxNumQueries
	numQuerySteps := hp.ActiveNumQuerySteps
	results := make([][]*metrics.Result, hp.NumRuns)

	for i := 0; i < hp.NumRuns; i++ {
		logger.Infof("-------------------- run %d/%d --------------------", i+1, hp.NumRuns)
		results[i] = make([]*metrics.Result, numQuerySteps)
		for j := 0; j < numQuerySteps; j++ {
			stepHP := *hp
			stepHP.ActiveMaxNumQueries = maxNumQueries * (j + 1) / numQuerySteps

			settings := &mondrian.Settings{
				NumTrees:                stepHP.NumTrees,
				DiscountFactor:          stepHP.DiscountFactor,
				DecisionPriorHyperparam: stepHP.DecisionPriorHyperparam,
				MaxSamplesInOneNode:     stepHP.MaxSamplesInOneNode,
				ConfidenceMeasure:       stepHP.ConfidenceMeasure,
				DensityExponent:         stepHP.DensityExponent,
				Debug:                   stepHP.Debug,
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			forest := mondrian.NewForest(settings, featureDim, rng)
			exp := experimenter.New(rcc.confValue, logger)

			if rcc.training {
				if stepHP.ActiveLearning > config.ActiveNone {
					err = exp.TrainActive(ctx, forest, streams.train, &stepHP)
				} else {
					err = exp.Train(ctx, forest, streams.train, &stepHP)
				}
				if err != nil {
					return err
				}
			}
			if rcc.testing {
				accuracy, err := exp.Classify(ctx, forest, streams.test, &stepHP)
				if err != nil {
					return err
				}
				fmt.Printf("accuracy: %.4f\n", accuracy)
				fmt.Printf("total samples used for training: %d\n", exp.Result().SamplesUsedForTraining)
			}
			results[i][j] = exp.Result()

			if rcc.training && (i+1 < hp.NumRuns || j+1 < numQuerySteps) {
				if err := streams.train.ResetPosition(ctx); err != nil {
					return fmt.Errorf("rewinding training stream for the next run: %v", err)
				}
			}
		}
	}

	if rcc.confValue && rcc.testing {
		printConfidenceReport(results[hp.NumRuns-1][numQuerySteps-1])
	}
	if hp.NumRuns > 1 {
		printAveragedResults(os.Stdout, results)
	}
	return nil
}
