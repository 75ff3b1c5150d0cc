package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/config"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/report"
	idpfserver "github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/server"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/watch"
	"github.com/rubrical-studios/idpf-praxis-dist-sub000/internal/workspace"
)

// errNotClean is returned by audit --check.
var errNotClean = errors.New("framework files are not clean")

func runInit(cmd *cobra.Command, args []string) error {
	ws := newWorkspace()
	written, err := ws.Init(sourceDir)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if !written {
		fmt.Fprintf(out, "%s already exists, left unchanged.\n", config.ConfigPath(ws.Root))
		return nil
	}
	fmt.Fprintf(out, "Created %s\n", config.ConfigPath(ws.Root))
	fmt.Fprintln(out, "Run 'idpf deploy' to install the framework files.")
	return nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := newWorkspace().Deploy(ctx, dryRun)
	if summary != nil {
		if rerr := report.RenderRun(cmd.OutOrStdout(), summary); rerr != nil {
			return rerr
		}
	}
	return err
}

func runAudit(cmd *cobra.Command, args []string) error {
	r, err := newWorkspace().Audit()
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	if err := report.RenderAudit(cmd.OutOrStdout(), r); err != nil {
		return err
	}
	if auditCheck && !r.Clean() {
		return errNotClean
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := newWorkspace().History()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		return report.RenderRunDetail(cmd.OutOrStdout(), run)
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	return report.RenderRuns(cmd.OutOrStdout(), runs)
}

func runOrphans(cmd *cobra.Command, args []string) error {
	store, err := newWorkspace().History()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	blocks, err := store.OrphanedBlocks(path)
	if err != nil {
		return err
	}
	return report.RenderOrphans(cmd.OutOrStdout(), blocks)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ws := newWorkspace()
	cfg, err := ws.Config()
	if err != nil {
		return err
	}
	dir := ws.SourcePath(cfg)
	if dir == "" {
		return errors.New("watch needs a template directory: set source in .idpf/config.yaml or pass --source")
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	redeploy := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			logger.Info("template source changed", zap.Strings("paths", changed))
		}
		summary, err := ws.Deploy(ctx, false)
		if summary != nil {
			if rerr := report.RenderRun(out, summary); rerr != nil {
				return rerr
			}
		}
		return err
	}

	w, err := watch.New(dir, redeploy, watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	if err := redeploy(ctx, nil); err != nil {
		logger.Warn("initial deployment failed", zap.Error(err))
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	s := idpfserver.New(idpfserver.Deps{
		Workspace: func() (*workspace.Workspace, error) { return newWorkspace(), nil },
		Logger:    logger,
	})
	logger.Info("mcp server starting", zap.String("project", projectDir), zap.String("version", idpfserver.Version))
	return server.ServeStdio(s)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "idpf v%s\n", idpfserver.Version)
	return nil
}

// cmdContext returns the command's context, which is nil when a command
// is invoked directly rather than through Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
