package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective kestrel configuration.

Without arguments, displays all values. With one argument, displays
the value for that key.

Configuration is read from ` + config.ProjectConfigName + ` (searched upward from
the working directory), the user config directory, and KESTREL_*
environment variables, in rising precedence.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			displayConfigKey(cfg, args[0])
			return
		}
		displayAllConfig(cfg)
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask credentials if set
	accessKey := "(not set)"
	if cfg.Storage.AccessKey != "" {
		accessKey = "****"
	}
	secretKey := "(not set)"
	if cfg.Storage.SecretKey != "" {
		secretKey = "****"
	}

	fmt.Printf("defaults.workflow: %s\n", cfg.Defaults.Workflow)
	fmt.Printf("defaults.shell: %s\n", cfg.Defaults.Shell)
	fmt.Printf("defaults.max_parallel: %d\n", cfg.Defaults.MaxParallel)
	fmt.Printf("docker.enabled: %t\n", cfg.Docker.Enabled)
	fmt.Printf("docker.host: %s\n", cfg.Docker.Host)
	fmt.Printf("storage.endpoint: %s\n", cfg.Storage.Endpoint)
	fmt.Printf("storage.access_key: %s\n", accessKey)
	fmt.Printf("storage.secret_key: %s\n", secretKey)
	fmt.Printf("storage.bucket: %s\n", cfg.Storage.Bucket)
	fmt.Printf("storage.secure: %t\n", cfg.Storage.Secure)
	fmt.Printf("output.color: %t\n", cfg.Output.Color)

	if len(cfg.Actions) > 0 {
		keys := make([]string, 0, len(cfg.Actions))
		for k := range cfg.Actions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("actions.%s: %s\n", k, cfg.Actions[k])
		}
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// getConfigValue resolves a dotted key to its value.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "defaults.workflow":
		return cfg.Defaults.Workflow, nil
	case "defaults.shell":
		return cfg.Defaults.Shell, nil
	case "defaults.max_parallel":
		return fmt.Sprintf("%d", cfg.Defaults.MaxParallel), nil
	case "docker.enabled":
		return fmt.Sprintf("%t", cfg.Docker.Enabled), nil
	case "docker.host":
		return cfg.Docker.Host, nil
	case "storage.endpoint":
		return cfg.Storage.Endpoint, nil
	case "storage.bucket":
		return cfg.Storage.Bucket, nil
	case "storage.secure":
		return fmt.Sprintf("%t", cfg.Storage.Secure), nil
	case "output.color":
		return fmt.Sprintf("%t", cfg.Output.Color), nil
	default:
		if action, ok := cfg.Actions[key]; ok {
			return action, nil
		}
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}
