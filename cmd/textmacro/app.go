package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"textmacro-go/application"
	"textmacro-go/application/monitor"
	"textmacro-go/core/eventbus"
	"textmacro-go/domain/regionset"
	"textmacro-go/infrastructure/browser"
	"textmacro-go/infrastructure/config"
	"textmacro-go/infrastructure/hotkey"
	"textmacro-go/infrastructure/influxdb"
	"textmacro-go/infrastructure/input"
	"textmacro-go/infrastructure/logging"
	"textmacro-go/infrastructure/mqtt"
	"textmacro-go/infrastructure/ocr"
	"textmacro-go/infrastructure/repository"
	"textmacro-go/infrastructure/screen"
	"textmacro-go/presentation"
)

// stage selects how much of the application a command needs.
type stage int

const (
	// stageStore opens config, logging, the event bus and the region store.
	stageStore stage = iota
	// stageMonitor adds OCR, the capture target, the monitor and history.
	stageMonitor
	// stageFull adds global hotkeys, the MQTT bridge and InfluxDB metrics.
	stageFull
)

const eventBufferSize = 256

// app holds the wired components of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	bus     eventbus.EventBus
	store   *regionset.Store
	history *repository.SQLiteHistory

	monitor     *monitor.Monitor
	coordinator *application.Coordinator
	console     *presentation.Console
	hotkeys     *hotkey.Listener

	// Released in reverse order by Close, after the bus drains
	closers []func() error
}

// newApp wires the application up to stage. On error everything opened so
// far is released.
func newApp(ctx context.Context, opts *rootOptions, upTo stage) (*app, error) {
	a := &app{}
	if err := a.open(ctx, opts, upTo); err != nil {
		a.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context, opts *rootOptions, upTo stage) error {
	// Load configuration
	cfg, err := config.Load(opts.resolveConfigPath())
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg

	// Initialize logging (dev: console only, prod: rotating file)
	logCfg, err := cfg.LogConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, closeLog)

	// Initialize event bus
	a.bus = eventbus.New(eventBufferSize, eventbus.WithLogger(logger))

	// Initialize region store
	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	a.store, err = application.OpenStore(ctx, application.StoreConfig{
		Repository: repo,
		Cap:        cfg.Monitor.MaxRegionSets,
		EventBus:   a.bus,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if upTo >= stageMonitor {
		if err := a.openMonitor(ctx); err != nil {
			return err
		}
	}

	// Initialize coordinator, without a monitor for store-only commands
	coordCfg := &application.CoordinatorConfig{
		Store:    a.store,
		EventBus: a.bus,
		Logger:   logger,
	}
	if a.monitor != nil {
		coordCfg.Monitor = a.monitor
	}
	if a.history != nil {
		coordCfg.History = a.history
	}
	a.coordinator, err = application.NewCoordinator(coordCfg)
	if err != nil {
		return err
	}

	if upTo >= stageFull {
		a.openHotkeys(ctx)
		a.openIntegrations(ctx)
	}
	return nil
}

func (a *app) openRepository(ctx context.Context) (regionset.Repository, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMongo:
		mongoCfg := repository.DefaultMongoDBConfig()
		mongoCfg.URI = a.cfg.Storage.Mongo.URI
		mongoCfg.Database = a.cfg.Storage.Mongo.Database
		mongoCfg.Collection = a.cfg.Storage.Mongo.Collection

		db, err := repository.NewMongoDB(ctx, mongoCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() error {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.Close(closeCtx)
		})
		return repository.NewMongoRegionSetRepository(db, mongoCfg.Collection, a.logger), nil

	default:
		return repository.NewFileRegionSetRepository(a.cfg.Storage.File.Path, a.logger), nil
	}
}

func (a *app) openMonitor(ctx context.Context) error {
	// Initialize OCR
	ocrCfg := a.cfg.OCR
	recognizer, err := ocr.Select(ocr.SelectConfig{
		Engine: ocrCfg.Engine,
		HTTP: ocr.ClientConfig{
			BaseURL:        ocrCfg.HTTP.BaseURL,
			Timeout:        ocrCfg.HTTP.Timeout.Std(),
			HealthInterval: ocrCfg.HTTP.HealthInterval.Std(),
			HealthTimeout:  ocr.DefaultClientConfig().HealthTimeout,
		},
		Cache:       ocrCfg.Cache.Enabled,
		MaxDistance: ocrCfg.Cache.MaxDistance,
		Breaker: &ocr.BreakerConfig{
			Threshold: ocrCfg.Breaker.Threshold,
			Cooldown:  ocrCfg.Breaker.Cooldown.Std(),
		},
		Logger: a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OCR: %w", err)
	}
	a.closers = append(a.closers, recognizer.Close)
	if !recognizer.Available() {
		fmt.Fprintln(os.Stderr, "warning: no OCR engine available, regions will report recognition errors")
	}

	// Initialize capture target
	var (
		capture  monitor.ScreenCapture
		injector monitor.InputInjector
	)
	switch a.cfg.Target {
	case config.TargetBrowser:
		pageCfg := browser.DefaultConfig()
		pageCfg.URL = a.cfg.Browser.URL
		pageCfg.Headless = a.cfg.Browser.Headless
		pageCfg.Width = a.cfg.Browser.Width
		pageCfg.Height = a.cfg.Browser.Height
		pageCfg.UserDataDir = a.cfg.Browser.UserDataDir
		pageCfg.Logger = a.logger

		page := browser.NewPage(pageCfg)
		if err := page.Start(ctx); err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		a.closers = append(a.closers, page.Stop)
		capture, injector = page, page

	default:
		capture = screen.NewCapturer()
		injector = input.NewInjector(a.logger)
	}

	// Initialize monitor
	mcfg := a.cfg.Monitor
	actionDelay := mcfg.ActionDelay.Std()
	a.monitor, err = monitor.New(monitor.Config{
		Capture:       capture,
		Recognizer:    recognizer,
		Injector:      injector,
		Source:        a.store,
		EventBus:      a.bus,
		Logger:        a.logger,
		CheckInterval: mcfg.CheckInterval.Std(),
		ActionDelay:   &actionDelay,
		StopTimeout:   mcfg.StopTimeout.Std(),
		Language:      mcfg.OCRLanguage,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}

	// Initialize trigger history
	if a.cfg.History.Enabled {
		return a.openHistory()
	}
	return nil
}

func (a *app) openHistory() error {
	if a.history != nil {
		return nil
	}
	history, err := repository.OpenHistory(repository.HistoryConfig{Path: a.cfg.History.Path})
	if err != nil {
		return fmt.Errorf("failed to open trigger history: %w", err)
	}
	a.history = history
	a.closers = append(a.closers, history.Close)
	return nil
}

// openHotkeys binds the global toggle and stop keys. A missing keyboard hook
// is reported and the run continues without hotkeys.
func (a *app) openHotkeys(ctx context.Context) {
	hc := a.cfg.Monitor.Hotkeys
	if !hc.Enabled {
		return
	}
	bindings, err := hotkey.Bindings(hc.Toggle, hc.Stop)
	if err == nil && len(bindings) == 0 {
		return
	}
	var listener *hotkey.Listener
	if err == nil {
		listener, err = hotkey.NewListener(&hotkey.ListenerConfig{
			Dispatcher: a.coordinator,
			Bindings:   bindings,
			Logger:     a.logger,
		})
	}
	if err == nil {
		err = listener.Start(ctx)
	}
	if err != nil {
		a.logger.Warn("Global hotkeys unavailable", "error", err)
		fmt.Fprintf(os.Stderr, "warning: global hotkeys unavailable: %v\n", err)
		return
	}
	a.hotkeys = listener
}

// openIntegrations connects the optional MQTT bridge and InfluxDB writer.
// Connection failures are logged and the integration is skipped.
func (a *app) openIntegrations(ctx context.Context) {
	if mc := a.cfg.MQTT; mc.Enabled {
		client, err := mqtt.Connect(mqtt.Config{
			Host:        mc.Host,
			Port:        mc.Port,
			TLS:         mc.TLS,
			ClientID:    mc.ClientID,
			Username:    mc.Username,
			Password:    mc.Password,
			QoS:         byte(mc.QoS),
			TopicPrefix: mc.TopicPrefix,
		}, a.logger)
		if err != nil {
			a.logger.Error("MQTT unavailable, continuing without it", "error", err)
		} else {
			bridge := mqtt.NewBridge(client, client.Topics(), a.coordinator, a.logger)
			bridge.Attach(a.bus)
			if err := client.Subscribe(client.Topics().Command(), bridge.HandleCommand); err != nil {
				a.logger.Warn("Remote commands unavailable", "error", err)
			}
			a.closers = append(a.closers, func() error {
				bridge.Detach()
				return client.Close()
			})
		}
	}

	if ic := a.cfg.InfluxDB; ic.Enabled {
		writer, err := influxdb.Connect(ctx, influxdb.Config{
			Enabled:       ic.Enabled,
			URL:           ic.URL,
			Token:         ic.Token,
			Org:           ic.Org,
			Bucket:        ic.Bucket,
			BatchSize:     ic.BatchSize,
			FlushInterval: ic.FlushInterval.Std(),
		}, a.logger)
		if err != nil {
			a.logger.Error("InfluxDB unavailable, continuing without metrics", "error", err)
		} else {
			writer.Attach(a.bus)
			a.closers = append(a.closers, writer.Close)
		}
	}
}

// attachConsole prints bus events to stdout until Close.
func (a *app) attachConsole(verbose bool) {
	a.console = presentation.NewConsole(presentation.ConsoleConfig{Out: os.Stdout, Verbose: verbose})
	a.console.Attach(a.bus)
	a.closers = append(a.closers, func() error {
		a.console.Close()
		return nil
	})
}

// Close releases the hotkeys, stops the monitor, drains the event bus to every subscriber and then
// releases everything else in reverse order of creation.
func (a *app) Close() error {
	if a.hotkeys != nil {
		a.hotkeys.Close() //nolint:errcheck // always nil
	}
	if a.coordinator != nil {
		a.coordinator.Stop()
	}
	if a.bus != nil {
		a.bus.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
