package dataset

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/psantana5/synthgen/pkg/logging"
)

// BatchJob is one model subdirectory to be processed by a child generator
// process
type BatchJob struct {
	Name      string
	ModelDir  string
	OutputDir string
}

// BatchOptions configures a batch run
type BatchOptions struct {
	Workers    int
	ConfigFile string // propagated to each child via --config
	Verbose    bool
}

// BatchRunner fans a set of model directories out to child generator
// processes. Each job is a separate OS process so a crash in one render
// never takes down the batch.
type BatchRunner struct {
	opts BatchOptions
	log  *logging.Logger

	// launch builds the command for one job; replaced in tests
	launch func(job BatchJob) *exec.Cmd
}

// NewBatchRunner creates a batch runner
func NewBatchRunner(opts BatchOptions, log *logging.Logger) *BatchRunner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	b := &BatchRunner{opts: opts, log: log}
	b.launch = b.generateCmd
	return b
}

// ListJobs enumerates the immediate subdirectories of modelsParent as batch
// jobs, sorted by name. Files at the top level are ignored.
func ListJobs(modelsParent, outputBase string) ([]BatchJob, error) {
	entries, err := os.ReadDir(modelsParent)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory %s: %w", modelsParent, err)
	}

	var jobs []BatchJob
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		jobs = append(jobs, BatchJob{
			Name:      e.Name(),
			ModelDir:  filepath.Join(modelsParent, e.Name()),
			OutputDir: filepath.Join(outputBase, e.Name()),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no model subdirectories found in %s", modelsParent)
	}
	return jobs, nil
}

// generateCmd builds the child process command for one job: this same binary
// re-invoked as `synthgen generate`
func (b *BatchRunner) generateCmd(job BatchJob) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = "synthgen"
	}
	args := []string{"generate", "--models", job.ModelDir, "--output", job.OutputDir}
	if b.opts.ConfigFile != "" {
		args = append(args, "--config", b.opts.ConfigFile)
	}
	if b.opts.Verbose {
		args = append(args, "--verbose")
	}
	return exec.Command(exe, args...)
}

// runJob executes one child process, capturing its output to a log file in
// the job's output directory
func (b *BatchRunner) runJob(job BatchJob) error {
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := filepath.Join(job.OutputDir, "generate.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create job log: %w", err)
	}
	defer logFile.Close()

	cmd := b.launch(job)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("generation process failed (see %s): %w", logPath, err)
	}
	return nil
}

// Run processes all jobs with a bounded worker pool and returns the number
// that succeeded. Individual job failures are logged, not fatal.
func (b *BatchRunner) Run(jobs []BatchJob) int {
	b.log.Info(fmt.Sprintf("Starting batch generation: %d jobs, %d workers", len(jobs), b.opts.Workers))

	var succeeded int64
	sem := make(chan struct{}, b.opts.Workers)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(job BatchJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			b.log.Info(fmt.Sprintf("Processing %s", job.Name))
			if err := b.runJob(job); err != nil {
				b.log.Error("Batch job failed", map[string]interface{}{
					"job":   job.Name,
					"error": err.Error(),
				})
				return
			}
			atomic.AddInt64(&succeeded, 1)
			b.log.Info(fmt.Sprintf("Completed %s", job.Name))
		}(job)
	}
	wg.Wait()

	b.log.Info(fmt.Sprintf("Batch generation complete: %d/%d jobs succeeded", succeeded, len(jobs)))
	return int(atomic.LoadInt64(&succeeded))
}
