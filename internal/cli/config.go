package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyberduckcoin/cdc-deploy/internal/config"
	"github.com/cyberduckcoin/cdc-deploy/internal/middleware/logging"
)

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project config file",
		Long: `Create a cdc.toml (or cdc.yaml) file in the current directory with the
default settings. Secrets are never written; set PRIVATE_KEY and
ETHERSCAN_API_KEY in the environment.

EXAMPLES:
  cdc-deploy config init
  cdc-deploy config init --format yaml
  cdc-deploy config init --force
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), format, force)
		},
	}

	cmd.Flags().StringVar(&format, "format", "toml", "file format (toml or yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration a deployment would run with, after applying
environment variables, the project file and defaults. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigInit(out io.Writer, format string, force bool) error {
	var path string
	switch format {
	case "toml":
		path = "cdc.toml"
	case "yaml":
		path = "cdc.yaml"
	default:
		return fmt.Errorf("unknown format %q (want toml or yaml)", format)
	}

	// Check if any config file already exists
	for _, name := range config.ProjectConfigFiles() {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	if err := config.WriteFile(path, config.DefaultFile()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s to set the RPC URL and explorer for your network\n", path)
	fmt.Fprintln(out, "  2. Export PRIVATE_KEY and ETHERSCAN_API_KEY")
	fmt.Fprintln(out, "  3. Run 'cdc-deploy'")
	return nil
}

func runConfigShow(out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = "(none)"
	} else if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}

	fmt.Fprintf(out, "Config file: %s\n", source)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Network:")
	fmt.Fprintf(out, "   RPC_URL:      %s\n", maskEndpoint(cfg.Network.RPCURL))
	fmt.Fprintf(out, "   CHAIN_ID:     %s\n", zeroAs(cfg.Network.ChainID, "(ask node)"))
	fmt.Fprintf(out, "   PRIVATE_KEY:  %s\n", hidden(cfg.Network.PrivateKey))
	fmt.Fprintf(out, "   GAS_LIMIT:    %s\n", zeroAs(int64(cfg.Network.GasLimit), "(estimate)"))
	fmt.Fprintln(out, "Explorer:")
	fmt.Fprintf(out, "   ETHERSCAN_API_URL:     %s\n", cfg.Explorer.APIURL)
	fmt.Fprintf(out, "   ETHERSCAN_API_KEY:     %s\n", maskSecret(cfg.Explorer.APIKey))
	fmt.Fprintf(out, "   ETHERSCAN_BROWSER_URL: %s\n", cfg.Explorer.BrowserURL)
	fmt.Fprintf(out, "   ETHERSCAN_RATE_LIMIT:  %g/s\n", cfg.Explorer.RequestsPerSecond)
	fmt.Fprintf(out, "   VERIFY_POLL_INTERVAL:  %s\n", cfg.Explorer.PollInterval)
	fmt.Fprintf(out, "   VERIFY_TOLERATE_ALREADY_VERIFIED: %t\n", cfg.Explorer.TolerateAlreadyVerified)
	fmt.Fprintln(out, "Project:")
	fmt.Fprintf(out, "   PROJECT_ROOT: %s\n", cfg.Project.Root)
	fmt.Fprintf(out, "   BUILDER:      %s\n", cfg.Project.Builder)
	fmt.Fprintln(out, "Logging:")
	fmt.Fprintf(out, "   LOG_LEVEL:  %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "   LOG_FORMAT: %s\n", orDefault(cfg.Logging.Format, "(auto)"))
	fmt.Fprintln(out, "Metrics:")
	fmt.Fprintf(out, "   METRICS_TEXTFILE: %s\n", orDefault(cfg.Metrics.Textfile, "(disabled)"))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Problems:\n%v\n", err)
	}
	return nil
}

// maskSecret shows only enough of a secret to tell two apart
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 12 {
		return "****"
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// maskEndpoint keeps scheme and host of a URL and hides anything that may hold a key
func maskEndpoint(s string) string {
	if s == "" {
		return "(not set)"
	}
	return logging.RedactEndpoint(s)
}

// hidden never reveals any part of s
func hidden(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "****"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func zeroAs(n int64, label string) string {
	if n == 0 {
		return label
	}
	return fmt.Sprint(n)
}
