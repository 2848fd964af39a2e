package worker

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"churchadmin/internal/amqp"
	"churchadmin/internal/core"
)

// NightlyKinds are exported by the scheduled job.
var NightlyKinds = []core.Kind{core.KindOfferingIncome, core.KindOfferingExpense}

// Scheduler runs the nightly offering export on a cron spec.
type Scheduler struct {
	cron   *cron.Cron
	worker *ReportWorker
	ctx    func() context.Context
	logger *slog.Logger
}

// NewScheduler registers the nightly export. ctx supplies the context for
// each run, e.g. one carrying the service account token.
func NewScheduler(spec string, w *ReportWorker, ctx func() context.Context, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger.With("component", "cron")}
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		), cron.WithLogger(cl)),
		worker: w,
		ctx:    ctx,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunNightly(s.ctx()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// RunNightly exports the active records of every nightly kind. A failing
// kind is logged and does not stop the others.
func (s *Scheduler) RunNightly(ctx context.Context) {
	for _, kind := range NightlyKinds {
		req := amqp.NewReportRequest(kind, "scheduler")
		req.Status = core.StatusActive
		if err := s.worker.Handle(ctx, req); err != nil {
			s.logger.ErrorContext(ctx, "Nightly export failed", "kind", kind, "error", err)
		}
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running export to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
