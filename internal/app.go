package internal

import (
	"aprsd/internal/channel"
	"aprsd/internal/controllers"
	"aprsd/internal/history"
	"aprsd/internal/providers"
	"aprsd/internal/services"
	"aprsd/internal/stationdb"
	"aprsd/internal/stationdb/interfaces"
	"aprsd/internal/structures"
	"context"
	"fmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

type App struct {
	WebServer *http.Server
}

func NewApp(apiController *controllers.ApiController, healthController *controllers.HealthController, scheduler interfaces.SchedulerInterface, manager channel.ManagerInterface, updater *services.StationUpdater, msgs *services.MessageProcessor, files *stationdb.FileManager, hist *history.DB, packets providers.PacketLoggerInterface, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) (*App, error) {
	// Inner mux: API routes
	routes := router.GetRoutes()
	apiMux := http.NewServeMux()
	for _, route := range routes {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, routes, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s %s as %s", conf.AppName, conf.Version, conf.Stations.OwnCall)
	err := scheduler.Restore()
	if err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}

	manager.AddReceiver(updater)
	manager.AddReceiver(msgs)
	if err = manager.LoadAll(); err != nil {
		logger.Errorf(providers.TypeApp, "Channel setup: %s", err)
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	ctx, stopChannels := context.WithCancel(context.Background())
	defer stopChannels()
	manager.StartAll(ctx)

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		stopChannels()
		scheduler.Stop()
		_ = manager.CloseAll()
		return nil, fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()
	stopChannels()
	if err = manager.CloseAll(); err != nil {
		logger.Warnf(providers.TypeApp, "Closing channels: %s", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = app.WebServer.Shutdown(shutdownCtx); err != nil {
		return nil, err
	}
	err = scheduler.Persist()
	if err != nil {
		return nil, err
	}
	if hist != nil {
		if err = hist.Close(); err != nil {
			logger.Warnf(providers.TypeApp, "Closing history: %s", err)
		}
	}
	files.Close()
	packets.Close()
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
