package dataset

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/psantana5/synthgen/pkg/logging"
)

func writeBatchFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"ulu", "harpoon", "mask"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// stray file at the top level is not a job
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestListJobs(t *testing.T) {
	modelsDir := writeBatchFixture(t)
	outputDir := t.TempDir()

	jobs, err := ListJobs(modelsDir, outputDir)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}

	// sorted by name
	want := []string{"harpoon", "mask", "ulu"}
	for i, job := range jobs {
		if job.Name != want[i] {
			t.Errorf("job %d is %q, want %q", i, job.Name, want[i])
		}
		if job.ModelDir != filepath.Join(modelsDir, job.Name) {
			t.Errorf("job %s model dir %q", job.Name, job.ModelDir)
		}
		if job.OutputDir != filepath.Join(outputDir, job.Name) {
			t.Errorf("job %s output dir %q", job.Name, job.OutputDir)
		}
	}
}

func TestListJobsEmpty(t *testing.T) {
	if _, err := ListJobs(t.TempDir(), t.TempDir()); err == nil {
		t.Error("expected error for a models directory with no subdirectories")
	}
}

func TestBatchRunnerRun(t *testing.T) {
	modelsDir := writeBatchFixture(t)
	outputDir := t.TempDir()

	jobs, err := ListJobs(modelsDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}

	log := logging.NewLogger(logging.ERROR, false)
	runner := NewBatchRunner(BatchOptions{Workers: 2}, log)
	runner.launch = func(job BatchJob) *exec.Cmd {
		return exec.Command("sh", "-c", "echo ok")
	}

	succeeded := runner.Run(jobs)
	if succeeded != len(jobs) {
		t.Errorf("succeeded %d/%d jobs", succeeded, len(jobs))
	}

	// each job has its output directory and captured log
	for _, job := range jobs {
		logPath := filepath.Join(job.OutputDir, "generate.log")
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Errorf("job %s log missing: %v", job.Name, err)
			continue
		}
		if string(data) != "ok\n" {
			t.Errorf("job %s log %q, want child output captured", job.Name, data)
		}
	}
}

func TestBatchRunnerFailuresNotFatal(t *testing.T) {
	modelsDir := writeBatchFixture(t)
	outputDir := t.TempDir()

	jobs, err := ListJobs(modelsDir, outputDir)
	if err != nil {
		t.Fatal(err)
	}

	log := logging.NewLogger(logging.ERROR, false)
	runner := NewBatchRunner(BatchOptions{Workers: 1}, log)
	runner.launch = func(job BatchJob) *exec.Cmd {
		if job.Name == "mask" {
			return exec.Command("sh", "-c", "exit 1")
		}
		return exec.Command("sh", "-c", "exit 0")
	}

	succeeded := runner.Run(jobs)
	if succeeded != len(jobs)-1 {
		t.Errorf("succeeded %d, want %d", succeeded, len(jobs)-1)
	}
}

func TestBatchRunnerWorkerFloor(t *testing.T) {
	log := logging.NewLogger(logging.ERROR, false)
	runner := NewBatchRunner(BatchOptions{Workers: 0}, log)
	if runner.opts.Workers != 1 {
		t.Errorf("worker floor %d, want 1", runner.opts.Workers)
	}
}

func TestGenerateCmdArgs(t *testing.T) {
	log := logging.NewLogger(logging.ERROR, false)
	runner := NewBatchRunner(BatchOptions{Workers: 2, ConfigFile: "/etc/synthgen.yaml", Verbose: true}, log)

	cmd := runner.generateCmd(BatchJob{
		Name:      "ulu",
		ModelDir:  "/models/ulu",
		OutputDir: "/out/ulu",
	})

	args := cmd.Args[1:]
	want := []string{
		"generate",
		"--models", "/models/ulu",
		"--output", "/out/ulu",
		"--config", "/etc/synthgen.yaml",
		"--verbose",
	}
	if len(args) != len(want) {
		t.Fatalf("args %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}
