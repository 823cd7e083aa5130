package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/estuarylabs/chemclean/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set chemclean configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("source_ceden: %s\n", cfg.SourceCEDEN)
		fmt.Printf("source_surf: %s\n", cfg.SourceSURF)
		fmt.Printf("output_dir: %s\n", cfg.OutputDir)
		fmt.Printf("window_start: %s\n", cfg.WindowStart)
		fmt.Printf("window_end: %s\n", cfg.WindowEnd)
		if cfg.RegionLayer != "" {
			fmt.Printf("region_layer: %s\n", cfg.RegionLayer)
		}
		fmt.Printf("http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "source_ceden":
			cfg.SourceCEDEN = val
		case "source_surf":
			cfg.SourceSURF = val
		case "output_dir":
			cfg.OutputDir = val
		case "window_start":
			cfg.WindowStart = val
		case "window_end":
			cfg.WindowEnd = val
		case "region_layer":
			cfg.RegionLayer = val
		case "http_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
			}
			cfg.HTTPTimeoutSec = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
