package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/kelseyhightower/envconfig"

	server "pulsemeter/server"
	"pulsemeter/server/internal/meter"
	servernet "pulsemeter/server/internal/net"
	"pulsemeter/server/internal/net/ws"
	"pulsemeter/server/internal/sim"
	"pulsemeter/server/internal/telemetry"
	"pulsemeter/server/logging"
	loggingsinks "pulsemeter/server/logging/sinks"
)

// Config is the environment-driven server configuration, read from
// PULSEMETER_*-prefixed variables.
type Config struct {
	ListenAddr  string   `envconfig:"LISTEN_ADDR" default:":8080"`
	TickRate    int      `envconfig:"TICK_RATE" default:"20"`
	LogSinks    []string `envconfig:"LOG_SINKS" default:"console"`
	LogBuffer   int      `envconfig:"LOG_BUFFER" default:"512"`
	LogJSONPath string   `envconfig:"LOG_JSON_PATH"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("PULSEMETER", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Run wires the coordinator, logging router, simulation stand-in, and HTTP
// surface, then serves until the listener fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger := telemetry.WrapLogger(log.Default())

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	logConfig.BufferSize = cfg.LogBuffer

	sinks, cleanup, err := buildSinks(logConfig, cfg.LogJSONPath)
	if err != nil {
		return err
	}
	defer cleanup()

	router, err := logging.NewRouter(nil, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	world := sim.NewWorld()

	var coordinator *server.Coordinator
	coordinator = server.NewCoordinator(server.Config{
		Groups: func(name string) server.Group {
			return meter.NewGroup(meter.Config{
				Name:      name,
				Sender:    coordinator,
				Power:     world,
				Publisher: router,
			})
		},
		Publisher: router,
		Logger:    logger,
	})
	world.Bind(coordinator)

	clock := sim.NewClock(coordinator, sim.ClockConfig{TickRate: cfg.TickRate})
	stop := make(chan struct{})
	go clock.Run(stop)
	defer close(stop)

	wsHandler := ws.NewHandler(coordinator, ws.HandlerConfig{Logger: logger})
	handler := servernet.NewHTTPHandler(coordinator, wsHandler, servernet.HTTPHandlerConfig{
		Logger: logger,
		World:  world,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	logger.Printf("server listening on %s (tick rate %d)", cfg.ListenAddr, clock.Rate())

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func buildSinks(cfg logging.Config, jsonPath string) ([]logging.NamedSink, func(), error) {
	var sinks []logging.NamedSink
	cleanup := func() {}

	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingsinks.NewConsoleSink(os.Stdout)})
	}
	if cfg.HasSink("json") {
		if jsonPath == "" {
			return nil, cleanup, fmt.Errorf("json sink enabled without PULSEMETER_LOG_JSON_PATH")
		}
		file, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open json log: %w", err)
		}
		cleanup = func() { file.Close() }
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSONSink(file, cfg.JSON.FlushInterval)})
	}
	return sinks, cleanup, nil
}
