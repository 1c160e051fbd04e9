package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/synthgen/pkg/annotation"
)

var (
	validateDir string
	visualize   bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a generated dataset for structural and annotation problems",
	Long: `Validate walks a dataset directory, pairs images with label files and
checks every YOLO annotation for format and normalized bounds. With
--visualize it also writes copies of labeled images with their bounding
boxes drawn in, under <dataset>/visualize.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateDir, "dataset", "", "dataset directory to validate (required)")
	validateCmd.Flags().BoolVar(&visualize, "visualize", false, "write images with bounding boxes drawn in")
	validateCmd.MarkFlagRequired("dataset")
}

func runValidate(cmd *cobra.Command, args []string) error {
	report, err := annotation.ValidateDataset(validateDir)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Split", "Images", "Valid", "Invalid", "Orphan Images", "Orphan Labels")
		for _, s := range report.Splits {
			table.Append(
				s.Name,
				fmt.Sprintf("%d", s.Images),
				fmt.Sprintf("%d", s.Valid),
				fmt.Sprintf("%d", s.Invalid),
				fmt.Sprintf("%d", s.OrphanImages),
				fmt.Sprintf("%d", s.OrphanLabels),
			)
		}
		table.Render()
		for _, e := range report.Errors {
			fmt.Printf("error: %s\n", e)
		}
	}

	if visualize {
		written, err := annotation.Visualize(validateDir)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d visualizations to %s/visualize\n", written, validateDir)
	}

	if n := report.TotalInvalid(); n > 0 {
		return fmt.Errorf("validation failed: %d problems found", n)
	}
	return nil
}
