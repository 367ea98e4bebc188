package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "irrigation_dashboard/docs"
	"irrigation_dashboard/internal/config"
	"irrigation_dashboard/internal/feed"
	"irrigation_dashboard/internal/handlers"
	"irrigation_dashboard/internal/logger"
	"irrigation_dashboard/internal/metrics"
	"irrigation_dashboard/internal/reconcile"
	"irrigation_dashboard/internal/repository"
	"irrigation_dashboard/internal/repository/db"
	"irrigation_dashboard/internal/server"
	"irrigation_dashboard/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 60 * time.Second
)

func main() {
	cfg, err := config.Load("configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid display timezone", "err", err)
	}

	conn, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	src, sink, bus, err := openFeed(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to connect feed", "err", err)
	}
	defer src.Close()

	repos := repository.NewRepository(conn)
	services, err := service.NewService(repos, service.Deps{
		Config: service.DashboardConfig{
			DeviceID:       cfg.Device.ID,
			CommandTimeout: cfg.Command.Timeout,
			Reconcile: reconcile.Config{
				LockWindow: cfg.Override.LockWindow,
				Location:   loc,
			},
		},
		Sink:    sink,
		Bus:     bus,
		Metrics: m,
		Log:     log,
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	if err := services.Attach(src); err != nil {
		log.Fatalw("failed to subscribe to device topics", "err", err)
	}

	go services.ConsumeResults(ctx)
	if services.Simulator != nil {
		go services.Simulator.Run(ctx, cfg.Simulator.Tick)
	}

	apiHandler := handlers.NewHandler(services, m.Handler(), log).WithPushInterval(cfg.WS.Interval)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, services, log)
}

func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		path = db.MemoryPath
	}
	log.Infow("opening event log", "path", path)
	return db.InitDB(path)
}

// openFeed returns the device feed, the command sink and, in simulator mode,
// the local bus the simulated device runs on.
func openFeed(ctx context.Context, cfg config.Config, log *logger.Logger) (feed.Feed, feed.CommandSink, *feed.Bus, error) {
	if cfg.Feed.Mode == config.FeedSimulator {
		bus := feed.NewBus()
		log.Infow("feed_mode", "mode", config.FeedSimulator, "device_id", cfg.Device.ID)
		return bus, bus, bus, nil
	}

	topics := feed.Topics{Prefix: cfg.Device.TopicPrefix}
	mq := feed.NewMQTTFeed(feed.MQTTConfig{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		QoS:            byte(cfg.MQTT.QoS),
		ConnectRetries: cfg.MQTT.ConnectRetries,
		Topics:         topics,
	}, log)

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := mq.Connect(cctx); err != nil {
		return nil, nil, nil, err
	}

	sink := feed.NewMQTTCommandSink(mq.Client(), topics, byte(cfg.MQTT.QoS), feed.BreakerConfig{
		Failures: cfg.Command.BreakerFailures,
		Open:     cfg.Command.BreakerOpen,
	})
	log.Infow("feed_mode", "mode", config.FeedMQTT, "device_id", cfg.Device.ID, "broker", cfg.MQTT.Broker)
	return mq, sink, nil, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	go func() {
		<-srv.Ready()
		log.Infow("http_listening", "addr", srv.Addr())
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	services.Close()
}
