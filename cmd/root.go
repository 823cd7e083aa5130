package cmd

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	cfgpkg "github.com/estuarylabs/chemclean/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags (wired later to config/viper)
	cfgFile string
	debug   bool
	// Source/output flags (override config if set)
	flagSourceCEDEN string
	flagSourceSURF  string
	flagOutputDir   string
	flagRegionLayer string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "chemclean",
	Short: "chemclean: merge, categorize and reshape monitoring chemistry data",
	Long: `chemclean merges the CEDEN and SURF water/sediment chemistry exports,
tags every analyte with its conceptual-model category, normalizes units
per analyte and matrix, and pivots the result into the wide tables the
Bayesian-network model consumes.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.chemclean/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagSourceCEDEN, "ceden", "", "CEDEN export path or URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSourceSURF, "surf", "", "SURF export path or URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "out", "", "output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagRegionLayer, "regions", "", "risk-region GeoJSON layer (overrides config)")
}

func loadConfig() {
	log.SetHandler(cli.New(os.Stderr))
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("ceden") && flagSourceCEDEN != "" {
		cfg.SourceCEDEN = flagSourceCEDEN
	}
	if f.Changed("surf") && flagSourceSURF != "" {
		cfg.SourceSURF = flagSourceSURF
	}
	if f.Changed("out") && flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if f.Changed("regions") && flagRegionLayer != "" {
		cfg.RegionLayer = flagRegionLayer
	}
}
