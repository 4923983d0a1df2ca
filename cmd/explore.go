// cmd/explore.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/internal/browser"
	"github.com/xkilldash9x/doctrail/internal/config"
	"github.com/xkilldash9x/doctrail/internal/explorer"
	"github.com/xkilldash9x/doctrail/internal/inspector"
	"github.com/xkilldash9x/doctrail/internal/interactor"
	"github.com/xkilldash9x/doctrail/internal/llmclient"
	"github.com/xkilldash9x/doctrail/internal/observability"
	"github.com/xkilldash9x/doctrail/internal/oracle"
	"github.com/xkilldash9x/doctrail/internal/reporting"
	"github.com/xkilldash9x/doctrail/internal/resolver"
)

// newExploreCmd creates and configures the `explore` command.
func newExploreCmd() *cobra.Command {
	exploreCmd := &cobra.Command{
		Use:   "explore [urls...]",
		Short: "Explores the given pages and collects every PDF document link found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			applyExploreFlags(cmd, cfg)

			cfg.Run.Targets = normalizeTargets(args)

			runID := uuid.New().String()
			logger.Info("Starting exploration run",
				zap.String("runID", runID),
				zap.Strings("targets", cfg.Run.Targets),
				zap.Int("max_iterations", cfg.Explorer.MaxIterations),
				zap.String("llm_provider", string(cfg.LLM.Provider)),
			)

			reporter, err := newRunReporter(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := reporter.Close(); err != nil {
					logger.Error("Failed to close reporter", zap.Error(err))
				}
			}()

			manager, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Error during browser shutdown", zap.Error(err))
				}
			}()

			llmClient, err := llmclient.NewClient(cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}

			exp := explorer.New(
				inspector.New(logger),
				oracle.New(llmClient, cfg.LLM, logger),
				interactor.New(resolver.New(logger), cfg.Explorer.ResetThreshold, interactor.DefaultPauses(), logger),
				cfg.Explorer.MaxIterations,
				logger,
			)

			var total int
			for _, target := range cfg.Run.Targets {
				report, err := exploreTarget(ctx, manager, exp, runID, target)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						logger.Warn("Exploration aborted", zap.String("runID", runID))
						return fmt.Errorf("exploration aborted by user signal")
					}
					logger.Error("Exploration failed", zap.String("target", target), zap.Error(err))
					return err
				}
				if err := reporter.Write(report); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				total += len(report.Links)
			}

			logger.Info("Exploration run completed",
				zap.String("runID", runID),
				zap.Int("document_links", total),
			)
			return nil
		},
	}

	exploreCmd.Flags().StringP("output", "o", "", "Output file path for the report. If unset, results go to stdout.")
	exploreCmd.Flags().StringP("format", "f", "text", "Report format ('text' or 'json').")
	exploreCmd.Flags().IntP("max-iterations", "n", 0, "Maximum exploration iterations per page. (Overrides config/env)")
	exploreCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	exploreCmd.Flags().String("provider", "", "LLM provider ('ollama' or 'google'). (Overrides config/env)")
	exploreCmd.Flags().String("model", "", "LLM model name. (Overrides config/env)")

	return exploreCmd
}

// exploreTarget runs one page exploration in a fresh browser tab.
func exploreTarget(ctx context.Context, manager *browser.Manager, exp *explorer.Explorer, runID, target string) (*reporting.Report, error) {
	session, err := manager.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	links, err := exp.Explore(ctx, session, target)
	if err != nil {
		return nil, err
	}

	return &reporting.Report{
		RunID:       runID,
		Target:      target,
		GeneratedAt: time.Now(),
		Links:       links,
	}, nil
}

// applyExploreFlags lets explicitly set flags override the loaded config.
func applyExploreFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	cfg.Run.Output, _ = flags.GetString("output")
	cfg.Run.Format, _ = flags.GetString("format")

	if flags.Changed("max-iterations") {
		cfg.Explorer.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("provider") {
		provider, _ := flags.GetString("provider")
		cfg.LLM.Provider = config.LLMProvider(provider)
	}
	if flags.Changed("model") {
		cfg.LLM.Model, _ = flags.GetString("model")
	}
}

func newRunReporter(cfg *config.Config) (reporting.Reporter, error) {
	output := cfg.Run.Output
	if output != "" {
		expanded, err := homedir.Expand(output)
		if err != nil {
			return nil, fmt.Errorf("failed to expand output path %q: %w", output, err)
		}
		output = expanded
	}

	reporter, err := reporting.New(cfg.Run.Format, output)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reporter: %w", err)
	}
	return reporter, nil
}

// normalizeTargets ensures every target carries a scheme.
func normalizeTargets(args []string) []string {
	targets := make([]string, len(args))
	for i, arg := range args {
		if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
			arg = "https://" + arg
		}
		targets[i] = arg
	}
	return targets
}
