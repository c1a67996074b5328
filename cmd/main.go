package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esp32_supervisor/internal/config"
	"esp32_supervisor/internal/handlers"
	"esp32_supervisor/internal/logger"
	"esp32_supervisor/internal/repository"
	"esp32_supervisor/internal/repository/db"
	"esp32_supervisor/internal/server"
	"esp32_supervisor/internal/service"
	"esp32_supervisor/internal/store"
	"esp32_supervisor/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// remoteStore is a store the process owns and must close on exit.
type remoteStore interface {
	store.RemoteStore
	Close() error
}

func main() {
	// load configs/config.yml, .env and SUPERVISOR_* overrides
	cfg, err := config.Load("configs", "config")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.LogLevel)

	// open DB
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatalw("failed to connect remote store", "driver", cfg.Store.Driver, "err", err)
	}
	sink := openSink(cfg.Influx, log)
	paths := store.NewPaths(cfg.Device.ID)
	latest := cfg.Sensors.Mode == config.SensorsLatest

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Deps{
		Store:           st,
		Paths:           paths,
		DeviceID:        cfg.Device.ID,
		LatestReadings:  latest,
		DefaultSetpoint: cfg.Control.DefaultSetpoint,
		HandleSizePx:    cfg.Control.HandleSizePx,
		SigningKey:      cfg.Auth.SigningKey,
		TokenTTL:        cfg.Auth.TokenTTL,
		Sink:            sink,
		Logger:          log,
	})
	if err := services.Start(ctx); err != nil {
		log.Fatalw("failed to start supervisor", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log.Component("http"))

	// the simulator plays the device when there is no broker
	if cfg.Store.Driver == config.DriverMemory && cfg.Simulator.Enabled {
		sim := service.NewSimulatorService(st, paths, latest, log.Component("simulator"))
		go sim.Run(ctx, cfg.Simulator.Tick)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, server.WithCORS(apiHandler.InitRoutes(), cfg.CORS.AllowedOrigins), log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)

	if err := services.Close(); err != nil {
		log.Warnw("supervisor close", "err", err)
	}
	if err := st.Close(); err != nil {
		log.Warnw("remote store close", "err", err)
	}
	sink.Close()
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

func openStore(cfg config.Config, log *logger.Logger) (remoteStore, error) {
	if cfg.Store.Driver == config.DriverMQTT {
		log.Infow("connecting to mqtt broker", "broker", cfg.Store.MQTT.Broker, "client_id", cfg.Store.MQTT.ClientID)
		s, err := store.NewMQTTStore(store.MQTTConfig{
			Broker:   cfg.Store.MQTT.Broker,
			ClientID: cfg.Store.MQTT.ClientID,
			Username: cfg.Store.MQTT.Username,
			Password: cfg.Store.MQTT.Password,
			QoS:      byte(cfg.Store.MQTT.QoS),
		}, log.Component("store"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	log.Infow("using in-memory store")
	return store.NewMemoryStore(), nil
}

func openSink(cfg config.InfluxConfig, log *logger.Logger) telemetry.Sink {
	if cfg.URL == "" {
		return telemetry.NopSink{}
	}
	log.Infow("exporting telemetry to influxdb", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return telemetry.NewInfluxSink(cfg.URL, cfg.Token, cfg.Org, cfg.Bucket)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler http.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
