package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/logging"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "synthgen",
	Short: "Synthetic training image generator for object detection",
	Long: `synthgen generates annotated synthetic training images from 3D models:
objects are dropped into a scene with physics, lighting and camera are
randomized, and each rendered image is paired with YOLO bounding box labels,
organized into train/test/val splits.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./synthgen.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initConfig locates the config file from the flag, environment or working
// directory
func initConfig() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SYNTHGEN")
	viper.BindEnv("config")

	if cfgFile == "" && viper.GetString("config") != "" {
		cfgFile = viper.GetString("config")
	}
	if cfgFile == "" {
		viper.AddConfigPath(".")
		viper.SetConfigName("synthgen")
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err == nil {
			cfgFile = viper.ConfigFileUsed()
		}
	}
}

// loadConfig returns the parsed config file, or defaults when none is
// configured
func loadConfig() (*config.GenerationConfig, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// newLogger builds the CLI logger honoring --verbose
func newLogger() *logging.Logger {
	level := logging.INFO
	if verbose {
		level = logging.DEBUG
	}
	return logging.NewLogger(level, false)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
