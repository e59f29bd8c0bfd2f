package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/framehub-core/internal/api"
	"github.com/nerrad567/framehub-core/internal/audit"
	"github.com/nerrad567/framehub-core/internal/control"
	"github.com/nerrad567/framehub-core/internal/hub"
	"github.com/nerrad567/framehub-core/internal/hub/huebridge"
	"github.com/nerrad567/framehub-core/internal/hub/memhub"
	"github.com/nerrad567/framehub-core/internal/hub/mqtthub"
	"github.com/nerrad567/framehub-core/internal/infrastructure/config"
	"github.com/nerrad567/framehub-core/internal/infrastructure/database"
	"github.com/nerrad567/framehub-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/framehub-core/internal/infrastructure/logging"
	"github.com/nerrad567/framehub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/framehub-core/internal/registry"
	"github.com/nerrad567/framehub-core/migrations"
)

// app holds every long-lived component. It is built once by newApp and
// passed down explicitly; nothing is global.
type app struct {
	cfg *config.Config
	log *logging.Logger

	hub      hub.Hub
	registry *registry.Registry
	control  *control.Coordinator
	api      *api.Server

	db     *database.DB
	mqtt   *mqtt.Client
	influx *influxdb.Client

	// runners are the background loops started by run.
	runners []func(ctx context.Context) error
	// closers release resources in reverse order of acquisition.
	closers []func()
}

// newApp connects the hub backend and optional stores and wires the
// registry, coordinator and API server together. On error everything
// acquired so far is released.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := a.connectHub(ctx); err != nil {
		return nil, err
	}

	a.registry = registry.New(a.hub, registry.Options{RefreshTimeout: cfg.Registry.RefreshTimeout})
	a.registry.SetLogger(log.Component("registry"))
	a.runners = append(a.runners, a.registry.Run)

	a.control = control.New(a.hub, a.registry, control.Options{
		WriteTimeout:              cfg.Control.WriteTimeout,
		MaxParallelWrites:         cfg.Control.MaxParallelWrites,
		ResyncAfterPartialFailure: cfg.Control.ResyncAfterPartialFailure,
	})
	a.control.SetLogger(log.Component("control"))

	var journal audit.Repository
	if cfg.Audit.Enabled {
		repo, err := a.openJournal(ctx)
		if err != nil {
			return nil, err
		}
		journal = repo
	} else {
		log.Info("command journal disabled")
	}

	if cfg.InfluxDB.Enabled {
		if err := a.connectInflux(); err != nil {
			return nil, err
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	a.api, err = api.New(api.Deps{
		Config:      cfg.API,
		Logger:      log.Component("api"),
		Registry:    a.registry,
		Coordinator: a.control,
		Journal:     journal,
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	if err := a.healthCheck(ctx); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	return a, nil
}

// connectHub creates the configured hub backend.
func (a *app) connectHub(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Hub.Backend {
	case config.HubBackendMQTT:
		client, err := mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		a.mqtt = client
		a.onClose("MQTT", client.Close)
		client.SetLogger(a.log.Component("mqtt"))
		client.OnConnectionChange(func(s mqtt.ConnectionState) {
			if s.Connected {
				a.log.Info("MQTT connected")
				return
			}
			a.log.Warn("MQTT connection lost", "error", s.Err)
		})
		a.log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		h, err := mqtthub.New(client, mqtthub.Options{
			Topics:         mqtt.Topics{Root: cfg.Hub.TopicRoot},
			QoS:            byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
			RequestTimeout: cfg.Hub.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("subscribing to hub topics: %w", err)
		}
		h.SetLogger(a.log.Component("mqtthub"))
		a.onClose("MQTT hub", h.Close)
		a.hub = h

	case config.HubBackendHue:
		h := huebridge.Connect(cfg.Hub.Hue.Host, cfg.Hub.Hue.Username, huebridge.Options{
			HomeName:     cfg.Site.Name,
			PollInterval: cfg.Hub.Hue.PollInterval,
		})
		h.SetLogger(a.log.Component("huebridge"))
		a.runners = append(a.runners, h.Run)
		a.hub = h
		a.log.Info("Hue bridge configured", "host", cfg.Hub.Hue.Host, "poll_interval", cfg.Hub.Hue.PollInterval)

	case config.HubBackendMemory:
		h := memoryHub(cfg.Site)
		a.onClose("memory hub", h.Close)
		a.hub = h
		a.log.Warn("using in-memory demo hub; commands are not sent anywhere")

	default:
		return fmt.Errorf("unknown hub backend %q", cfg.Hub.Backend)
	}
	return nil
}

// openJournal opens the database, applies migrations and registers the
// command journal as a recorder.
func (a *app) openJournal(ctx context.Context) (*audit.SQLiteRepository, error) {
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.onClose("database", db.Close)
	a.log.Info("database connected", "path", a.cfg.Database.Path)

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	a.log.Info("database migrations complete", "applied", applied)

	repo := audit.NewSQLiteRepository(db.DB)
	journal := audit.NewJournal(repo, audit.JournalOptions{
		Retention: time.Duration(a.cfg.Audit.RetentionDays) * 24 * time.Hour,
	})
	journal.SetLogger(a.log.Component("audit"))
	a.control.AddRecorder(journal)
	a.runners = append(a.runners, journal.Run)
	return repo, nil
}

// connectInflux connects to InfluxDB and registers command telemetry.
func (a *app) connectInflux() error {
	client, err := influxdb.Connect(a.cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	a.influx = client
	a.onClose("InfluxDB", client.Close)
	client.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.control.AddRecorder(influxdb.NewTelemetry(client, a.cfg.Site.ID))
	a.log.Info("InfluxDB connected",
		"url", a.cfg.InfluxDB.URL,
		"org", a.cfg.InfluxDB.Org,
		"bucket", a.cfg.InfluxDB.Bucket,
	)
	return nil
}

// healthCheck verifies the connected infrastructure.
func (a *app) healthCheck(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.mqtt != nil {
		if err := a.mqtt.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// run starts the background loops and the API server, waits for ctx, then
// shuts down: API first, then the coordinator, then the loops, then the
// connections.
func (a *app) run(ctx context.Context) error {
	defer a.close()

	loopCtx, stopLoops := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoops()

	g, gctx := errgroup.WithContext(loopCtx)
	for _, fn := range a.runners {
		g.Go(func() error {
			if err := fn(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := a.api.Start(ctx); err != nil {
		stopLoops()
		_ = g.Wait()
		return fmt.Errorf("starting API server: %w", err)
	}
	a.log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port),
	)

	var failure error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received, cleaning up")
	case <-gctx.Done():
		failure = errors.New("background component stopped unexpectedly")
	}

	if err := a.api.Close(); err != nil {
		a.log.Error("error closing API server", "error", err)
	}
	a.control.Close()
	stopLoops()
	if err := g.Wait(); err != nil {
		failure = fmt.Errorf("background component failed: %w", err)
	}

	a.log.Info("FrameHub Core stopped")
	return failure
}

// onClose registers a resource to release on shutdown.
func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, func() {
		a.log.Info("closing " + name)
		if err := fn(); err != nil {
			a.log.Error("error closing "+name, "error", err)
		}
	})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// memoryHub builds the in-memory demo hub used by the memory backend: one
// authorized home named after the site with a few accessories.
func memoryHub(site config.SiteConfig) *memhub.Hub {
	return memhub.Demo(hub.Home{ID: site.ID, Name: site.Name})
}
