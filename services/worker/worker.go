package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/examwatcher/internal/alert"
	"sjsage522/examwatcher/internal/crawler"
	"sjsage522/examwatcher/internal/notifier"
	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/services/metrics"

	"github.com/robfig/cron/v3"
)

// Trigger names used in logs and metrics
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Crawler runs one pass over the listing pages
type Crawler interface {
	Run(ctx context.Context) crawler.CrawlResult
}

// Alerter decides what a cycle should announce.
// Evaluate commits the alert state; Peek only reports what Evaluate would say.
type Alerter interface {
	Evaluate(result crawler.CrawlResult, now time.Time) (alert.Message, bool)
	Peek(result crawler.CrawlResult, now time.Time) (alert.Message, bool)
}

// Deliverer fans a message out to recipients
type Deliverer interface {
	Deliver(ctx context.Context, message string, recipients []string) []notifier.Outcome
}

// Exporter persists a cycle's records
type Exporter interface {
	Export(result crawler.CrawlResult) error
}

// Report is the outcome of one pipeline cycle
type Report struct {
	Trigger   string
	StartedAt time.Time
	Elapsed   time.Duration
	Result    crawler.CrawlResult
	Alert     alert.Message
	Alerted   bool
	Outcomes  []notifier.Outcome
}

// Summary renders the report for the requester of a manual run
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Incomplete count: %d\n", len(r.Result.Incomplete))
	if len(r.Result.Incomplete) > 0 {
		b.WriteString("🚨 Incomplete Tests:\n")
		b.WriteString(alert.FormatRecords(r.Result.Incomplete))
		b.WriteString("\n")
	} else {
		b.WriteString("✅ No Incomplete Tests Found.\n")
	}
	fmt.Fprintf(&b, "📦 Completed count: %d", len(r.Result.Completed))
	if r.Result.PagesFailed > 0 {
		fmt.Fprintf(&b, "\n⚠️ Pages failed: %d/%d", r.Result.PagesFailed, r.Result.PagesAttempted)
	}
	if r.Alerted && r.Alert.Kind == alert.KindQuiet {
		b.WriteString("\n")
		b.WriteString(r.Alert.Text)
	}
	return b.String()
}

// Options configures a Worker
type Options struct {
	Crawler         Crawler
	Alerter         Alerter
	Notifier        Deliverer
	Exporter        Exporter
	Recipients      []string
	Interval        time.Duration
	RunOnStart      bool
	ManualBroadcast bool
	Metrics         *metrics.Metrics
}

// Worker drives the crawl, alert, notify pipeline on a schedule and on demand.
// Cycles never overlap, so the alert state has a single mutator at a time.
type Worker struct {
	ctx  context.Context
	opts Options

	mu  sync.Mutex
	now func() time.Time
	log *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, opts Options) *Worker {
	return &Worker{
		ctx:  ctx,
		opts: opts,
		now:  time.Now,
		log:  logger.ForWorker(),
	}
}

// Start schedules periodic cycles and blocks until the worker context is done
func (w *Worker) Start() error {
	if w.opts.Interval <= 0 {
		return fmt.Errorf("worker: interval must be positive, got %s", w.opts.Interval)
	}

	cl := cronLogger{log: w.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	schedule := "@every " + w.opts.Interval.String()
	if _, err := c.AddFunc(schedule, func() { w.RunCycle(TriggerSchedule) }); err != nil {
		return fmt.Errorf("worker: schedule %q: %w", schedule, err)
	}

	c.Start()
	w.log.Info().Dur("interval", w.opts.Interval).Msg("Scheduler started")

	if w.opts.RunOnStart {
		go w.RunCycle(TriggerSchedule)
	}

	<-w.ctx.Done()
	w.log.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// Trigger runs one cycle on demand and returns its report.
// Recipients get the alert only when ManualBroadcast is set; otherwise the
// alert state is left as it was, so the next scheduled cycle still sends it.
func (w *Worker) Trigger(ctx context.Context) Report {
	return w.runCycle(ctx, TriggerManual, w.opts.ManualBroadcast)
}

// RunCycle runs one scheduled cycle, broadcasting any alert
func (w *Worker) RunCycle(trigger string) Report {
	return w.runCycle(w.ctx, trigger, true)
}

func (w *Worker) runCycle(ctx context.Context, trigger string, broadcast bool) Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := w.log.WithField("trigger", trigger)
	start := time.Now()
	report := Report{Trigger: trigger, StartedAt: w.now()}
	log.Info().Msg("Running crawl cycle")

	report.Result = w.opts.Crawler.Run(ctx)
	if broadcast {
		report.Alert, report.Alerted = w.opts.Alerter.Evaluate(report.Result, w.now())
	} else {
		report.Alert, report.Alerted = w.opts.Alerter.Peek(report.Result, w.now())
	}

	if broadcast && report.Alerted {
		w.opts.Metrics.IncAlert(string(report.Alert.Kind))
		report.Outcomes = w.opts.Notifier.Deliver(ctx, report.Alert.Text, w.opts.Recipients)
		if failed := notifier.Failed(report.Outcomes); failed > 0 {
			log.Warn().Int("failed", failed).Int("attempts", len(report.Outcomes)).Msg("Some deliveries failed")
		}
	}

	if w.opts.Exporter != nil {
		if err := w.opts.Exporter.Export(report.Result); err != nil {
			log.Error().Err(err).Msg("Export failed")
		}
	}

	report.Elapsed = time.Since(start)
	w.opts.Metrics.IncCycle(trigger, report.Elapsed)

	log.Info().
		Int("incomplete", len(report.Result.Incomplete)).
		Int("completed", len(report.Result.Completed)).
		Bool("alerted", report.Alerted).
		Str("alert", string(report.Alert.Kind)).
		Dur("elapsed", report.Elapsed).
		Msg("Crawl cycle finished")

	return report
}
