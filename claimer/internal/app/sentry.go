package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/thecrazygm/claim-rewards/claimer/pkg/claim"
)

const sentryFlushTimeout = 2 * time.Second

// initSentry enables error reporting when dsn is set. The returned func
// flushes buffered events and must be called before exit.
func initSentry(log *slog.Logger, dsn string, variant Variant, build Build, runID string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: variant.Binary() + "@" + build.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("variant", string(variant))
		scope.SetTag("run_id", runID)
	})
	log.Debug("app: sentry error reporting enabled")
	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

func reportFailure(r claim.Result) {
	if sentry.CurrentHub().Client() == nil || r.Err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("account", r.Account)
		scope.SetTag("kind", r.Err.Kind.String())
		sentry.CaptureException(r.Err)
	})
}
