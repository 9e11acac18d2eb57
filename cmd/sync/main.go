// Command sync runs one reconciliation pass from the command line and
// exits non-zero when any source fails. Intended for cron and for
// ad-hoc operator runs.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-intel/internal/airtable"
	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/calendly"
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/fathom"
	"github.com/ignite/customer-intel/internal/intercom"
	"github.com/ignite/customer-intel/internal/notify"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/repository/postgres"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/smartlead"
	"github.com/ignite/customer-intel/internal/syncer"
)

func main() {
	var (
		source     = flag.String("source", "", "run only this source (intercom, calendly, smartlead, airtable, fathom)")
		timeout    = flag.Duration("timeout", 30*time.Minute, "overall run deadline")
		configPath = flag.String("config", "config/config.yaml", "config file path")
		summary    = flag.Bool("summary", false, "post the health/MRR summary to the notifier after the run")
	)
	flag.Parse()
	logger.Configure(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	customerRepo := postgres.NewCustomerRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	syncLogRepo := postgres.NewSyncLogRepo(db)

	notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, nil)
	engine := alerting.NewEngine(customerRepo, notifier, cfg.Alerts.HealthDropThreshold)
	customers := customer.NewService(customerRepo, engine)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	newLock := func() distlock.DistLock {
		return distlock.NewSyncRunLock(rdb, db, cfg.Sync.LockTTL())
	}

	var sources []syncer.Source
	if cfg.Intercom.Enabled {
		sources = append(sources, intercom.NewConnector(intercom.NewClient(cfg.Intercom), customers))
	}
	if cfg.Calendly.Enabled {
		sources = append(sources, calendly.NewConnector(calendly.NewClient(cfg.Calendly), customers, cfg.Calendly, cfg.Sync))
	}
	if cfg.Smartlead.Enabled {
		sources = append(sources, smartlead.NewConnector(smartlead.NewClient(cfg.Smartlead), campaignRepo))
	}
	if cfg.Airtable.Enabled {
		sources = append(sources, airtable.NewConnector(airtable.NewClient(cfg.Airtable), customers, cfg.Airtable))
	}
	if cfg.Fathom.Enabled {
		sources = append(sources, fathom.NewConnector(fathom.NewClient(cfg.Fathom), customers, cfg.Fathom, cfg.Sync))
	}
	if len(sources) == 0 {
		log.Fatal("no sources enabled")
	}

	orch := syncer.NewOrchestrator(syncLogRepo, newLock, sources...)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var logs []domain.SyncLog
	if *source != "" {
		l, err := orch.Run(ctx, domain.Source(*source))
		if err != nil {
			log.Fatalf("sync %s: %v", *source, err)
		}
		logs = []domain.SyncLog{*l}
	} else {
		logs, err = orch.RunAll(ctx)
		if err != nil {
			log.Fatalf("sync: %v", err)
		}
	}

	failed := 0
	for _, l := range logs {
		fmt.Printf("%-10s %-8s synced=%d created=%d updated=%d skipped=%d failed=%d (%.1fs)\n",
			l.Source, l.Status, l.RecordsSynced, l.RecordsCreated, l.RecordsUpdated,
			l.RecordsSkipped, l.RecordsFailed, l.DurationSeconds)
		if l.Status == domain.SyncFailed {
			failed++
			if l.Error != "" {
				fmt.Printf("           error: %s\n", l.Error)
			}
		}
	}
	if len(logs) > 1 {
		total := syncer.Totals(logs)
		fmt.Printf("%-10s %-8s synced=%d created=%d updated=%d skipped=%d failed=%d\n",
			"total", "", total.Synced, total.Created, total.Updated, total.Skipped, total.Failed)
	}
	if *summary {
		if err := customers.NotifySummary(ctx); err != nil {
			log.Printf("summary notification failed: %v", err)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
