package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/psantana5/synthgen/pkg/dataset"
	"github.com/psantana5/synthgen/pkg/metrics"
	"github.com/psantana5/synthgen/pkg/render"
	"github.com/psantana5/synthgen/pkg/sysinfo"
)

var (
	genModelDir   string
	genOutputDir  string
	genNumImages  int
	genResolution string
	genWorkers    int
	genSeed       int64
	metricsPort   string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic dataset from a directory of 3D models",
	Long: `Generate renders the configured number of synthetic images from the models
in --models, writes YOLO labels next to them under --output, and finishes
with config.yaml and classes.txt at the dataset root.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genModelDir, "models", "", "directory containing 3D model files (required)")
	generateCmd.Flags().StringVar(&genOutputDir, "output", "", "dataset output directory (required)")
	generateCmd.Flags().IntVar(&genNumImages, "num-images", 0, "total images to generate (overrides config)")
	generateCmd.Flags().StringVar(&genResolution, "resolution", "", "render resolution as WIDTHxHEIGHT (overrides config)")
	generateCmd.Flags().IntVar(&genWorkers, "workers", 1, "accepted for compatibility; a single job renders sequentially")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed for reproducible runs")
	generateCmd.Flags().StringVar(&metricsPort, "metrics-port", "", "serve Prometheus metrics on this port during generation")
	generateCmd.MarkFlagRequired("models")
	generateCmd.MarkFlagRequired("output")
}

// parseResolution parses a WIDTHxHEIGHT string
func parseResolution(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q", parts[1])
	}
	return w, h, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the config file
	cfg.ModelDir = genModelDir
	cfg.OutputDir = genOutputDir
	if cmd.Flags().Changed("num-images") {
		cfg.NumImages = genNumImages
	}
	if cmd.Flags().Changed("resolution") {
		w, h, err := parseResolution(genResolution)
		if err != nil {
			return err
		}
		cfg.Render.Resolution = [2]int{w, h}
	}
	if cmd.Flags().Changed("seed") {
		seed := genSeed
		cfg.RandomSeed = &seed
	}

	log := newLogger()

	if genWorkers > 1 {
		log.Warn("A single generation job renders sequentially; use 'batch' for parallelism")
	}

	host := sysinfo.Probe()
	log.Info("Host capabilities", map[string]interface{}{
		"cpu_model":   host.CPUModel,
		"cpu_threads": host.CPUThreads,
		"ram_bytes":   host.RAMTotalBytes,
		"has_gpu":     host.HasGPU,
		"gpu":         host.GPUName,
	})

	var gen *metrics.Generation
	if metricsPort != "" {
		reg := prometheus.NewRegistry()
		gen = metrics.NewGeneration(reg)
		srv := metrics.Serve(metricsPort, reg, log)
		defer srv.Close()
	}

	backend, err := render.Open(cfg.Render.Engine, render.Settings{
		Width:      cfg.Render.Width(),
		Height:     cfg.Render.Height(),
		FileFormat: cfg.Render.FileFormat,
		Quality:    cfg.Render.Quality,
		Samples:    cfg.Render.Samples,
		UseGPU:     cfg.Render.UseGPU,
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	g, err := dataset.New(cfg, backend, log, gen)
	if err != nil {
		return err
	}

	summary, err := g.Generate()
	if err != nil {
		return err
	}

	return printSummary(summary)
}

func printSummary(summary *dataset.Summary) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Split", "Requested", "Committed")
	for _, sp := range summary.Splits {
		table.Append(sp.Name, fmt.Sprintf("%d", sp.Requested), fmt.Sprintf("%d", sp.Committed))
	}
	table.Render()
	fmt.Printf("\nTotal images: %d\n", summary.Committed())
	fmt.Printf("Classes: %s\n", strings.Join(summary.Classes, ", "))
	return nil
}
