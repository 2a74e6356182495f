package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/events"
	"github.com/yndnr/qrtoken-go/internal/infra/buildinfo"
	"github.com/yndnr/qrtoken-go/internal/infra/confloader"
	"github.com/yndnr/qrtoken-go/internal/infra/shutdown"
	"github.com/yndnr/qrtoken-go/internal/infra/tlsroots"
	"github.com/yndnr/qrtoken-go/internal/server/config"
	"github.com/yndnr/qrtoken-go/internal/server/httpserver"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/internal/telemetry/metric"
	"github.com/yndnr/qrtoken-go/pkg/crypto/adaptive"
	"github.com/yndnr/qrtoken-go/pkg/crypto/keyring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", ".env", "Path to a .env file, ignored when missing")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("qrtoken-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting qrtoken-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"backend", cfg.Storage.Backend)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)
	shutdownHandler.SetLogger(log)

	master, err := keyring.Parse(cfg.Security.MasterKey)
	if err != nil {
		return fmt.Errorf("parse master key: %w", err)
	}
	keys, err := keyring.New(master)
	if err != nil {
		return fmt.Errorf("derive keys: %w", err)
	}

	var registry *metric.Registry
	var recorder metric.Recorder = metric.Nop{}
	if cfg.Metrics.Enabled {
		registry = metric.NewRegistry()
		recorder = registry
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, registry, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return store.close()
	})

	sealer, err := newLabelSealer(cfg.Security.LabelCipher, keys.LabelKey())
	if err != nil {
		return fmt.Errorf("init label cipher: %w", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init events: %w", err)
	}
	shutdownHandler.OnShutdown("events", func(context.Context) error {
		return publisher.Close()
	})

	manager, err := service.NewTokenManager(store, cfg.TokenManager(), keys.LookupKey(),
		service.WithLogger(log.With("component", "token_manager")),
		service.WithRecorder(recorder),
		service.WithPublisher(publisher),
		service.WithLabelSealer(sealer),
	)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	if cfg.Retention.SweepInterval > 0 {
		sweeper := service.NewSweeper(manager, cfg.Retention.SweepInterval, log.With("component", "sweeper"))
		sweeper.Start()
		shutdownHandler.OnShutdown("sweeper", func(context.Context) error {
			sweeper.Stop()
			return nil
		})
	}

	routerCfg := &httpserver.RouterConfig{
		Tokens:   manager,
		Ready:    store.ready,
		Logger:   log.With("component", "http"),
		Recorder: recorder,
	}
	if registry != nil {
		routerCfg.Metrics = registry.Handler()
	}
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(routerCfg))
	useTLS := cfg.Server.HTTP.TLSCertFile != ""
	if useTLS {
		tlsCfg, err := newServerTLS(&cfg.Server.HTTP, log, shutdownHandler)
		if err != nil {
			return fmt.Errorf("init tls: %w", err)
		}
		httpServer.SetTLSConfig(tlsCfg)
	}
	shutdownHandler.OnShutdown("http", httpServer.Shutdown)

	if *configFile != "" {
		if err := watchLogLevel(*configFile, log, shutdownHandler); err != nil {
			log.Warn("config watcher disabled", "error", err)
		}
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr, "tls", useTLS)

		var err error
		if useTLS {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the config file, .env and the environment.
func loadConfig(configFile, envFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithDotEnv(envFile)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newServerTLS serves the configured pair, reloading it when the files
// change, and optionally requires client certificates.
func newServerTLS(cfg *config.HTTPConfig, log logger.Logger, sh *shutdown.Handler) (*tls.Config, error) {
	w, err := tlsroots.NewWatcher(cfg.TLSCertFile, cfg.TLSKeyFile,
		tlsroots.WithLogger(log.With("component", "tls")))
	if err != nil {
		return nil, err
	}
	var clientCAs *tlsroots.Pool
	if cfg.TLSClientCAFile != "" {
		clientCAs = tlsroots.NewEmptyPool()
		if err := clientCAs.AddCertFile(cfg.TLSClientCAFile); err != nil {
			return nil, err
		}
	}
	w.StartAsync()
	sh.OnShutdown("tls-watcher", func(context.Context) error {
		w.Stop()
		return nil
	})
	return tlsroots.ServerConfig(w, clientCAs), nil
}

// newLabelSealer picks the cipher by hardware support unless one is forced.
func newLabelSealer(cipher string, key []byte) (*adaptive.Sealer, error) {
	if cipher == "" {
		return adaptive.NewSealer(key)
	}
	return adaptive.NewSealerWithType(key, adaptive.CipherType(cipher))
}

func newPublisher(cfg *config.ServerConfig) (events.Publisher, error) {
	if len(cfg.Events.Kafka.Brokers) == 0 {
		return events.Noop{}, nil
	}
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: cfg.Events.Kafka.Brokers,
		Topic:   cfg.Events.Kafka.Topic,
	})
}

// watchLogLevel re-reads log.level whenever the config file changes. Other
// settings need a restart.
func watchLogLevel(path string, log logger.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(func(changed string) {
		level, err := confloader.ReadFile(changed, "log.level")
		if err != nil {
			log.Warn("reload config failed", "path", changed, "error", err)
			return
		}
		if level == "" || level == logger.GetLevel() {
			return
		}
		logger.SetLevel(level)
		log.Info("log level changed", "level", level)
	})
	w.StartAsync()
	sh.OnShutdown("config-watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
