// Package cmd provides the command-line interface for SiteAudit.
// It handles command parsing, configuration loading, and audit execution.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/qainsight/siteaudit/internal/audit"
	"github.com/qainsight/siteaudit/internal/config"
	"github.com/qainsight/siteaudit/internal/logging"
	"github.com/qainsight/siteaudit/internal/storage"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "siteaudit [URL]",
	Short: "A single-page website audit tool",
	Long: `SiteAudit runs an on-demand audit of a single web page.

It fetches the page, inspects its HTML structure, probes a sample of
its links, checks for robots.txt, and reduces the heuristic findings
into a 0-100 score. Every run is stored for historical trending.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./siteaudit.yml)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Audit flags
	rootCmd.Flags().DurationP("timeout", "t", 10*time.Second, "Fetch and robots.txt timeout")
	rootCmd.Flags().Duration("probe-timeout", 5*time.Second, "Per-link probe timeout")
	rootCmd.Flags().IntP("sample-size", "s", 5, "Max links probed per audit (0 disables probing)")
	rootCmd.Flags().Duration("slow-threshold", 2*time.Second, "Response time above which a performance finding is raised")
	rootCmd.Flags().StringP("user-agent", "u", "SiteAudit/1.0", "HTTP User-Agent header")
	rootCmd.Flags().String("label", "", "Display label for the website")

	// Database flags
	rootCmd.PersistentFlags().StringP("database", "d", "./siteaudit.db", "Path to SQLite database file")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Optional log file path")

	// Bind audit flags to viper
	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"request_timeout", "timeout"},
		{"probe_timeout", "probe-timeout"},
		{"sample_size", "sample-size"},
		{"slow_threshold", "slow-threshold"},
		{"user_agent", "user-agent"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	// Persistent flags are shared with subcommands
	persistentBinds := []struct {
		viperKey string
		flagName string
	}{
		{"database_path", "database"},
		{"log_level", "log-level"},
		{"log_file", "log-file"},
	}

	for _, bind := range persistentBinds {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.PersistentFlags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	rootCmd.AddCommand(historyCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("siteaudit")
	}

	viper.AutomaticEnv() // read in environment variables that match
	viper.SetEnvPrefix("SA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("SiteAudit/%s", version)
	}
	return "SiteAudit/dev"
}

func loadConfig() (*config.AuditConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func showCurrentConfig(cfg *config.AuditConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Printf("# Current SiteAudit Configuration\n")
	fmt.Printf("# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("# Configuration file search paths: ./siteaudit.yml\n")
	fmt.Printf("# Environment variables prefix: SA_\n\n")

	fmt.Print(string(yamlData))

	fmt.Printf("\n# Configuration source priority:\n")
	fmt.Printf("# 1. Command-line arguments (highest priority)\n")
	fmt.Printf("# 2. Environment variables (SA_ prefix)\n")
	fmt.Printf("# 3. Configuration file (siteaudit.yml)\n")
	fmt.Printf("# 4. Default values (lowest priority)\n")

	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Update User-Agent with dynamic version if not explicitly set
	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == "SiteAudit/1.0" {
		cfg.UserAgent = generateUserAgent()
	}

	// Handle --show-config: display current configuration and exit
	if showConfig {
		return showCurrentConfig(cfg)
	}

	if len(args) == 0 {
		return fmt.Errorf("no URL provided\nUsage: %s [URL]", os.Args[0])
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel),
		FilePath:   cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 3,
		Console:    cfg.LogFile == "",
	}); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	// Create database directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	auditor, err := audit.New(cfg, store)
	if err != nil {
		return err
	}

	label, _ := cmd.Flags().GetString("label")

	run, err := auditor.RunAudit(cmd.Context(), args[0], audit.Options{Label: label})
	if err != nil {
		return err
	}

	printRun(run)
	return nil
}

// printRun renders one audit result for the terminal
func printRun(run *audit.AuditRun) {
	fmt.Printf("Audit %s\n", run.UUID)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Printf("  Outcome:  %s\n", run.Outcome)
	if run.StatusCode != nil {
		fmt.Printf("  Status:   %d\n", *run.StatusCode)
	}
	fmt.Printf("  Elapsed:  %dms\n", run.ElapsedMS)
	if run.Outcome == audit.OutcomeSucceeded {
		fmt.Printf("  Payload:  %d bytes\n", run.PayloadBytes)
	}
	fmt.Printf("  Summary:  %s\n", run.Summary)
	fmt.Printf("  Score:    %d/100\n", run.Score)

	if len(run.Findings) > 0 {
		fmt.Printf("\nFindings (%d):\n", len(run.Findings))
		for _, f := range run.Findings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Message)
			if f.Recommendation != "" {
				fmt.Printf("      -> %s\n", f.Recommendation)
			}
		}
	} else {
		fmt.Printf("\nNo findings.\n")
	}

	if len(run.Metrics) > 0 {
		fmt.Printf("\nMetrics:\n")
		for _, m := range run.Metrics {
			fmt.Printf("  %-20s %s\n", m.Key, m.Value)
		}
	}
}
