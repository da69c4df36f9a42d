package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/config"
)

var (
	initToken string
	initForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(dataDir)
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		path, err := writeDefaultConfig(dataDir, initToken, initForce)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&initToken, "token", "", "Freesound API token to store")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig saves the defaults to dataDir, refusing to replace an
// existing file unless force is set.
func writeDefaultConfig(dataDir, token string, force bool) (string, error) {
	path := config.Path(dataDir)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Catalog.Token = token
	if err := cfg.Save(); err != nil {
		return "", err
	}
	return path, nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	token := "(not set)"
	if cfg.Catalog.Token != "" {
		token = "(set)"
	}
	dept := cfg.Search.Department
	if dept == "" {
		dept = "(all)"
	}
	nearby := "off"
	if cfg.Location.Enabled {
		nearby = fmt.Sprintf("%.4f,%.4f within %gkm", cfg.Location.Latitude, cfg.Location.Longitude, cfg.Search.NearbyRadius)
	}

	fmt.Fprintf(w, "config file   %s\n", config.Path(cfg.DataDir))
	fmt.Fprintf(w, "catalog       %s://%s\n", cfg.Catalog.Scheme, cfg.Catalog.Host)
	fmt.Fprintf(w, "token         %s\n", token)
	fmt.Fprintf(w, "page size     %d per category\n", catalog.PageSize(cfg.Search.PageSize))
	fmt.Fprintf(w, "department    %s\n", dept)
	fmt.Fprintf(w, "nearby        %s\n", nearby)
	fmt.Fprintf(w, "timeout       %s\n", cfg.Search.Timeout.Duration)
}
