// idpf deploys IDPF framework files into a project and keeps user
// extensions intact across upgrades.
//
// Usage:
//
//	idpf init              # Write .idpf/config.yaml
//	idpf deploy            # Deploy or upgrade the framework files
//	idpf audit             # Compare deployed files with the source
//	idpf history           # List recorded deployments
//	idpf watch             # Redeploy whenever the template source changes
//	idpf serve             # Start the MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/logging"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/workspace"
)

var (
	// Global flags
	verbose    bool
	jsonLogs   bool
	projectDir string
	sourceDir  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "idpf",
	Short: "IDPF framework installer",
	Long: `idpf deploys framework files (rules, commands, CLAUDE.md) from a
template source into a project.

Files marked <!-- MANAGED --> are replaced on every upgrade. Files marked
<!-- EXTENSIBLE --> keep the content of their USER-EXTENSION blocks; other
edits are archived under .idpf/archive/ before the file is replaced.

The project is the nearest directory with a .idpf/ directory, or the
working directory. Use --project to choose another one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if projectDir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			projectDir = config.FindProjectRoot(wd)
		}

		// A broken config is reported by the command itself.
		level := ""
		if cfg, err := config.LoadOrDefault(config.NewFileStore(), projectDir); err == nil {
			level = cfg.LogLevel
		}

		var err error
		logger, err = logging.New(logging.Options{Level: level, Verbose: verbose, JSON: jsonLogs})
		if err != nil {
			return err
		}
		logger.Debug("project resolved", zap.String("root", projectDir))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .idpf/config.yaml with the default categories",
	Long: `Writes the default configuration. An existing configuration is left
untouched. Pass --source to deploy from a framework checkout instead of the
bundled templates.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy or upgrade the framework files",
	Args:  cobra.NoArgs,
	RunE:  runDeploy,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare deployed files with the manifest and the template source",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded deployments or show one run",
	Long: `Without arguments, lists the most recent deployments. With a run id
(or a unique prefix of one), shows the files of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var orphansCmd = &cobra.Command{
	Use:   "orphans [path]",
	Short: "Show extension blocks the new templates had no place for",
	Long: `Prints the content of extension blocks that were dropped because
their id no longer exists in the template. Path is the deployed file
relative to the project root; without it every orphaned block is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrphans,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Redeploy whenever the template source changes",
	Long: `Deploys once, then watches the template source directory and deploys
again after every burst of changes. Requires a directory source.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Serves the idpf_deploy, idpf_audit and idpf_history tools over stdio.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "idpf": {
        "command": "idpf",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the idpf version",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

var (
	dryRun       bool
	auditCheck   bool
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "Write logs as JSON lines")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project root (default: nearest directory with .idpf/)")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s", "", "Framework template directory (overrides the config)")

	deployCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would change without writing anything")
	auditCmd.Flags().BoolVar(&auditCheck, "check", false, "Exit with status 1 unless every file is clean")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")

	historyCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(initCmd, deployCmd, auditCmd, historyCmd, watchCmd, serveCmd, versionCmd)
}

// newWorkspace binds the resolved project and the --source override.
func newWorkspace() *workspace.Workspace {
	ws := workspace.New(projectDir, logger)
	ws.SourceDir = sourceDir
	return ws
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
