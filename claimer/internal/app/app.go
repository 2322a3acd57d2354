// Package app is the command line glue shared by the claim binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/thecrazygm/claim-rewards/claimer/internal/config"
	"github.com/thecrazygm/claim-rewards/claimer/pkg/claim"
	"github.com/thecrazygm/claim-rewards/hive/pkg/client"
	"github.com/thecrazygm/claim-rewards/scot/pkg/scot"
	"github.com/thecrazygm/claim-rewards/utils/pkg/logger"
)

const (
	EnvHiveNodes  = "HIVE_NODES"
	EnvScotAPIURL = "SCOT_API_URL"
	EnvSentryDSN  = "SENTRY_DSN"
)

// Variant selects what a binary claims.
type Variant string

const (
	VariantNative Variant = "native"
	VariantScot   Variant = "scot"
)

func (v Variant) Binary() string {
	if v == VariantScot {
		return "claim-scot"
	}
	return "claim-rewards"
}

// Build is version metadata injected at link time.
type Build struct {
	Version string
	Commit  string
	Date    string
}

type Options struct {
	Variant Variant
	Args    []string
	Build   Build
	// Stdout receives logs and --version output. Defaults to os.Stdout.
	Stdout io.Writer
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Run parses args and performs one claim run. It returns an error only for
// configuration and connection failures; per-account failures are logged
// and reported but do not fail the run.
func Run(ctx context.Context, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	f, fs, err := parseFlags(opts.Variant, opts.Args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(opts.Stdout, "%s %s (commit %s, built %s)\n", opts.Variant.Binary(), opts.Build.Version, opts.Build.Commit, opts.Build.Date)
		return nil
	}

	if err := config.LoadEnvFile(f.envFile, fs.Changed("env-file")); err != nil {
		return err
	}

	runID := uuid.New().String()
	log := logger.NewWithWriter(opts.Stdout, f.debug).With("run_id", runID)
	BuildInfo.WithLabelValues(string(opts.Variant), opts.Build.Version, opts.Build.Commit, opts.Build.Date).Set(1)

	if f.metricsFile != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(f.metricsFile, prometheus.DefaultGatherer); err != nil {
				log.Error("app: failed to write metrics file", "path", f.metricsFile, "error", err)
			}
		}()
	}

	flush, err := initSentry(log, opts.Getenv(EnvSentryDSN), opts.Variant, opts.Build, runID)
	if err != nil {
		return err
	}
	defer flush()

	file, err := config.Load(f.accounts)
	if err != nil {
		log.Error("app: failed to load accounts", "error", err)
		return err
	}
	log.Info("app: loaded accounts", "path", file.Path, "count", len(file.Accounts))
	log.Debug("app: config", "config", fmt.Sprintf("%+v", file.Redacted()))

	cred, err := config.ResolveSecret(f.postingKey, file.Secret(), opts.Getenv)
	if err != nil {
		log.Error("app: no posting key", "error", err)
		return err
	}
	log.Info("app: using posting key", "source", string(cred.Source))

	authority := file.Authority()
	log.Debug("app: using authority account", "authority", authority)

	chain, err := client.Connect(ctx, client.Config{
		Logger:     log,
		Nodes:      pickNodes(f.nodes, opts.Getenv(EnvHiveNodes), file.Nodes),
		PostingKey: cred.Value,
	})
	if err != nil {
		log.Error("app: failed to connect to hive", "error", err)
		return fmt.Errorf("failed to connect to hive: %w", err)
	}

	variant, err := newVariant(log, opts, f, file, chain)
	if err != nil {
		return err
	}

	orch, err := claim.NewOrchestrator(claim.Config{
		Logger:    log,
		Variant:   variant,
		DryRun:    f.dryRun,
		OnFailure: reportFailure,
	})
	if err != nil {
		return err
	}

	if _, err := orch.Run(ctx, file.Accounts); err != nil {
		return fmt.Errorf("claim run aborted: %w", err)
	}
	return nil
}

func newVariant(log *slog.Logger, opts Options, f *flags, file *config.File, chain *client.Client) (claim.Variant, error) {
	switch opts.Variant {
	case VariantNative:
		return claim.NewNativeVariant(log, chain), nil
	case VariantScot:
		baseURL := firstNonEmpty(f.scotAPIURL, opts.Getenv(EnvScotAPIURL), file.ScotAPIURL)
		sc, err := scot.NewClient(scot.Config{Logger: log, BaseURL: baseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create SCOT client: %w", err)
		}
		return claim.NewScotVariant(log, sc, chain), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", opts.Variant)
	}
}

// pickNodes prefers the command line, then HIVE_NODES, then the config
// file. Nil means the built-in list.
func pickNodes(cli []string, env string, file []string) []string {
	if len(cli) > 0 {
		return cli
	}
	if env != "" {
		var out []string
		for _, n := range strings.Split(env, ",") {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if len(file) > 0 {
		return file
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
