// gotrainer trains a small built-in linear-regression model on synthetic
// data. It exists to exercise the full harness surface from the command
// line: YAML config, checkpoint resume, and optional run history.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-trainer/history"
	"github.com/tsawler/go-trainer/training"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gotrainer",
		Short:         "Training-loop harness demo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(trainCmd())

	return root
}

func trainCmd() *cobra.Command {
	var (
		configPath   string
		name         string
		logPath      string
		historyPath  string
		resumeEpoch  int
		resumeLatest bool
		trainSize    int
		featureDim   int
		learningRate float64
	)

	cfg := training.Config{
		Epochs:        5,
		BatchSize:     10,
		TestFrequency: 5,
		SaveDir:       "weights",
	}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the built-in linear regression demo model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := training.LoadConfig(configPath)
				if err != nil {
					return err
				}

				// Flags set explicitly on the command line win over the file
				if !cmd.Flags().Changed("epochs") {
					cfg.Epochs = loaded.Epochs
				}
				if !cmd.Flags().Changed("batch-size") {
					cfg.BatchSize = loaded.BatchSize
				}
				if !cmd.Flags().Changed("test-frequency") {
					cfg.TestFrequency = loaded.TestFrequency
				}
				if !cmd.Flags().Changed("save-dir") {
					cfg.SaveDir = loaded.SaveDir
				}
			}

			loader, err := syntheticLoader(trainSize, trainSize/5, featureDim)
			if err != nil {
				return err
			}

			model := newLinearModel(featureDim, learningRate)

			var opts []training.Option
			if logPath != "" {
				opts = append(opts, training.WithLogPath(logPath))
			}

			if historyPath != "" {
				store, err := history.Open(historyPath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, training.WithRecorder(store))
			}

			harness, err := training.New(name, model, loader, []string{"loss"}, opts...)
			if err != nil {
				return err
			}

			switch {
			case resumeLatest:
				if err := harness.Resume(cfg.SaveDir); err != nil {
					return err
				}
			case resumeEpoch > 0:
				if err := harness.Load(resumeEpoch, cfg.SaveDir); err != nil {
					return err
				}
			}

			return harness.Train(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML training config file")
	cmd.Flags().StringVar(&name, "name", "linreg", "harness name used for checkpoint and log files")
	cmd.Flags().StringVar(&logPath, "log", "", "epoch log path (default <name>.log)")
	cmd.Flags().StringVar(&historyPath, "history", "", "SQLite run-history database path")
	cmd.Flags().IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "train through this epoch (inclusive)")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "minibatch size")
	cmd.Flags().IntVar(&cfg.TestFrequency, "test-frequency", cfg.TestFrequency, "evaluate every Nth minibatch")
	cmd.Flags().StringVar(&cfg.SaveDir, "save-dir", cfg.SaveDir, "checkpoint directory")
	cmd.Flags().IntVar(&resumeEpoch, "resume", 0, "resume from this epoch's checkpoint")
	cmd.Flags().BoolVar(&resumeLatest, "resume-latest", false, "resume from the most recent checkpoint")
	cmd.Flags().IntVar(&trainSize, "train-size", 1000, "synthetic training set size")
	cmd.Flags().IntVar(&featureDim, "features", 4, "synthetic feature dimension")
	cmd.Flags().Float64Var(&learningRate, "lr", 0.05, "SGD learning rate")

	return cmd
}
