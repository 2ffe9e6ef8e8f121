// Package workers runs one sync job as a process: it opens the connections the job
// needs, applies the job deadline and records the run in the optional ClickHouse ledger.
package workers

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shopsync/config"
	"shopsync/internal/clickhouse"
	"shopsync/internal/postgres"
	"shopsync/internal/rabbitmq"
	"shopsync/models"
	"shopsync/pkg/logger"
)

// Deps holds the connections shared by the jobs. ClickHouse and RabbitMQ are nil when disabled.
type Deps struct {
	Config     *config.Config
	Postgres   *postgres.Client
	ClickHouse *clickhouse.Client
	RabbitMQ   *rabbitmq.Publisher
	HTTP       *http.Client
}

// Outcome is what a job reports back for the run ledger.
type Outcome struct {
	Pages    int
	Records  int
	Aborted  bool
	AbortErr error
}

type JobFunc func(ctx context.Context, d *Deps, runID string) (Outcome, error)

// Connect opens Postgres and, when configured, the analytics sinks. A sink that cannot be
// reached is logged and left disabled; only Postgres is required.
func Connect(cfg *config.Config, job string) (*Deps, error) {
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	log.Println("✓ Connected to Postgres")

	d := &Deps{
		Config:   cfg,
		Postgres: pgClient,
		HTTP:     &http.Client{Timeout: cfg.Sync.HTTPTimeout},
	}

	if cfg.ClickHouse.Enabled() {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			logger.Warn("✗ ClickHouse disabled: %v", err)
		} else {
			d.ClickHouse = chClient
			log.Printf("✓ Connected to ClickHouse %s:%d/%s", cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.Database)
		}
	}

	if job == config.JobOrder && cfg.RabbitMQ.Enabled() {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("✗ RabbitMQ disabled: %v", err)
		} else {
			d.RabbitMQ = publisher
			log.Printf("✓ Connected to RabbitMQ, publishing to %s", cfg.RabbitMQ.OrderQueue)
		}
	}

	return d, nil
}

func (d *Deps) Close() {
	if d.RabbitMQ != nil {
		d.RabbitMQ.Close()
	}
	if d.ClickHouse != nil {
		if err := d.ClickHouse.Close(); err != nil {
			logger.Warn("Failed to close ClickHouse: %v", err)
		}
	}
	if d.Postgres != nil {
		if err := d.Postgres.Close(); err != nil {
			logger.Warn("Failed to close Postgres: %v", err)
		}
	}
	log.Println("✓ Connections closed")
}

// Run executes fn under the configured job timeout with a fresh run id.
func Run(ctx context.Context, job string, d *Deps, fn JobFunc) error {
	runID := uuid.NewString()

	timeout := d.Config.Sync.Timeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now().UTC()
	log.Printf("🚀 Starting %s (run %s)", job, runID)

	out, err := fn(ctx, d, runID)
	run := syncRun(job, runID, started, time.Now().UTC(), out, err)
	log.Printf("%s finished: status=%s pages=%d records=%d in %s",
		job, run.Status, run.Pages, run.Records, run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond))

	if d.ClickHouse != nil {
		// The job context may already be done.
		recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.ClickHouse.InsertSyncRun(recordCtx, run); err != nil {
			logger.Warn("✗ Failed to record run %s: %v", runID, err)
		}
	}
	return err
}

func syncRun(job, runID string, started, ended time.Time, out Outcome, err error) models.SyncRun {
	run := models.SyncRun{
		RunID:     runID,
		Job:       job,
		StartedAt: started,
		EndedAt:   ended,
		Pages:     out.Pages,
		Records:   out.Records,
		Status:    "succeeded",
	}
	switch {
	case err != nil:
		run.Status = "failed"
		run.Error = err.Error()
	case out.Aborted:
		run.Status = "aborted"
		if out.AbortErr != nil {
			run.Error = out.AbortErr.Error()
		}
	}
	return run
}

// Main runs job as a whole process and returns the exit code. Setup failures exit 1;
// a failed run exits 1 only for order sync, the other jobs log the error and exit 0.
func Main(job string, fn JobFunc) int {
	logger.Init()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(job); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return 1
	}
	log.Printf("✓ Configuration loaded for %s", job)

	d, err := Connect(cfg, job)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, job, d, fn); err != nil {
		logger.Error("%s failed: %v", job, err)
		if job == config.JobOrder {
			return 1
		}
	}
	return 0
}
