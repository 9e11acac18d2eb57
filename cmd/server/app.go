package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-intel/internal/airtable"
	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/calendly"
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/fathom"
	"github.com/ignite/customer-intel/internal/intercom"
	"github.com/ignite/customer-intel/internal/notify"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/repository/postgres"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/smartlead"
	"github.com/ignite/customer-intel/internal/syncer"
)

// App holds the wired service graph shared by the API server.
type App struct {
	DB           *sql.DB
	Redis        *redis.Client
	Customers    *customer.Service
	Campaigns    *postgres.CampaignRepo
	Orchestrator *syncer.Orchestrator
}

// Close releases the app's connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildApp(cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("Connected to database")

	customerRepo := postgres.NewCustomerRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)
	syncLogRepo := postgres.NewSyncLogRepo(db)

	notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, nil)
	engine := alerting.NewEngine(customerRepo, notifier, cfg.Alerts.HealthDropThreshold)
	customers := customer.NewService(customerRepo, engine)

	app := &App{
		DB:        db,
		Customers: customers,
		Campaigns: campaignRepo,
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.Redis = rdb
		log.Println("Sync-run locking via Redis enabled")
	} else {
		log.Println("Sync-run locking via Postgres advisory lock")
	}
	newLock := func() distlock.DistLock {
		return distlock.NewSyncRunLock(rdb, db, cfg.Sync.LockTTL())
	}

	app.Orchestrator = syncer.NewOrchestrator(syncLogRepo, newLock, buildSources(cfg, customers, campaignRepo)...)
	return app, nil
}

// buildSources wires one connector per enabled source, in canonical
// sync order.
func buildSources(cfg *config.Config, customers *customer.Service, campaigns *postgres.CampaignRepo) []syncer.Source {
	var sources []syncer.Source

	if cfg.Intercom.Enabled {
		sources = append(sources, intercom.NewConnector(intercom.NewClient(cfg.Intercom), customers))
	}
	if cfg.Calendly.Enabled {
		sources = append(sources, calendly.NewConnector(calendly.NewClient(cfg.Calendly), customers, cfg.Calendly, cfg.Sync))
	}
	if cfg.Smartlead.Enabled {
		sources = append(sources, smartlead.NewConnector(smartlead.NewClient(cfg.Smartlead), campaigns))
	}
	if cfg.Airtable.Enabled {
		sources = append(sources, airtable.NewConnector(airtable.NewClient(cfg.Airtable), customers, cfg.Airtable))
	}
	if cfg.Fathom.Enabled {
		sources = append(sources, fathom.NewConnector(fathom.NewClient(cfg.Fathom), customers, cfg.Fathom, cfg.Sync))
	}

	if len(sources) == 0 {
		log.Println("WARNING: no sources enabled, sync endpoints will have nothing to run")
	}
	return sources
}
