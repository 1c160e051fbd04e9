package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/synthgen/pkg/dataset"
	"github.com/psantana5/synthgen/pkg/sysinfo"
)

var (
	batchModelsDir string
	batchOutputDir string
	batchWorkers   int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate datasets for multiple model directories in parallel",
	Long: `Batch treats every immediate subdirectory of --models as an independent
generation job and runs them through a pool of child generator processes.
Each job writes its dataset to <output>/<subdirectory-name>.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchModelsDir, "models", "", "parent directory of model subdirectories (required)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output", "", "parent directory for per-job datasets (required)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", sysinfo.DefaultWorkers(), "number of concurrent generation processes")
	batchCmd.MarkFlagRequired("models")
	batchCmd.MarkFlagRequired("output")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := newLogger()

	jobs, err := dataset.ListJobs(batchModelsDir, batchOutputDir)
	if err != nil {
		return err
	}

	runner := dataset.NewBatchRunner(dataset.BatchOptions{
		Workers:    batchWorkers,
		ConfigFile: cfgFile,
		Verbose:    verbose,
	}, log)

	succeeded := runner.Run(jobs)
	if succeeded == 0 {
		return fmt.Errorf("all %d batch jobs failed", len(jobs))
	}
	return nil
}
