package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"team-event-service/internal/app"
	"team-event-service/internal/config"
	"team-event-service/internal/infra/memory"
	rediscache "team-event-service/internal/infra/redis"
	transport "team-event-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the event console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	settings := cfg.Event.Settings()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store
	var reader app.ResultReader
	if cfg.Postgres.URL != "" {
		conns, err := connectPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer conns.Close()
		if err := runMigrations(ctx, conns.db); err != nil {
			return err
		}
		store, reader = conns.store, conns.store
	} else {
		log.Printf("postgres url not configured, using in-memory store")
		mem := memory.NewStore()
		store, reader = mem, mem
	}

	cacheTTL := config.TTLDuration(cfg.Event.ResultCacheTTL, 2*time.Second)
	viewerTTL := config.TTLDuration(cfg.Event.ViewerTTL, 30*time.Second)
	var cache app.ResultCache
	var viewers app.ViewerRegistry
	if cfg.Redis.Addr != "" {
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = rediscache.NewResultCache(client, reader, cacheTTL)
		viewers = rediscache.NewViewerRegistry(client, viewerTTL)
	} else {
		cache = memory.NewResultCache(reader, cacheTTL)
		viewers = memory.NewViewerRegistry(viewerTTL)
	}

	controller := app.NewEventController(settings, store, cache)
	defer controller.Close()
	if err := controller.Recover(ctx); err != nil {
		return err
	}
	marking := app.NewMarkingService(settings, store, viewers)

	console := transport.NewConsoleHandler(controller)
	api := transport.NewAPIHandler(settings.EventID, controller, marking, cache)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", console.ServeWS)
	api.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting event console on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
