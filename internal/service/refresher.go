package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherx-dashboard/internal/observability"
)

// RefreshFunc re-fetches one session's forecast. It reports false when there was
// nothing to refresh.
type RefreshFunc func(ctx context.Context, token string) (bool, error)

// Refresher runs one recurring job per session on a gocron scheduler, tagged with
// the session token.
type Refresher struct {
	sched   *gocron.Scheduler
	refresh RefreshFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewRefresher creates a stopped refresher. timeout bounds each run.
func NewRefresher(timeout time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched := gocron.NewScheduler(time.UTC)
	sched.TagsUnique()
	sched.SingletonModeAll()
	return &Refresher{sched: sched, timeout: timeout, logger: logger}
}

// Start binds the refresh function and starts the scheduler in the background.
func (r *Refresher) Start(fn RefreshFunc) {
	r.refresh = fn
	r.sched.StartAsync()
}

// Schedule replaces any job for token with one that runs every interval. The first
// run happens one interval from now.
func (r *Refresher) Schedule(token string, every time.Duration) error {
	r.Stop(token)
	_, err := r.sched.Every(every).WaitForSchedule().Tag(token).Do(r.run, token)
	if err != nil {
		return err
	}
	r.logger.Debug("auto-refresh scheduled", zap.Duration("every", every))
	return nil
}

// Stop removes the job for token, if any.
func (r *Refresher) Stop(token string) {
	if err := r.sched.RemoveByTag(token); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		r.logger.Warn("remove refresh job", zap.Error(err))
	}
}

// Scheduled reports whether token has a job.
func (r *Refresher) Scheduled(token string) bool {
	jobs, err := r.sched.FindJobsByTag(token)
	return err == nil && len(jobs) > 0
}

// Shutdown stops the scheduler and waits for running jobs.
func (r *Refresher) Shutdown() {
	r.sched.Stop()
}

func (r *Refresher) run(token string) {
	if r.refresh == nil {
		return
	}
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, "logger", r.logger)

	refreshed, err := r.refresh(ctx, token)
	switch {
	case errors.Is(err, ErrUnauthorized):
		observability.AutoRefreshRunsTotal.WithLabelValues("skipped").Inc()
		r.Stop(token)
	case err != nil:
		observability.AutoRefreshRunsTotal.WithLabelValues("error").Inc()
		r.logger.Warn("auto-refresh failed", zap.Error(err))
	case !refreshed:
		observability.AutoRefreshRunsTotal.WithLabelValues("skipped").Inc()
	default:
		observability.AutoRefreshRunsTotal.WithLabelValues("success").Inc()
	}
}
