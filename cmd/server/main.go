package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/Tyrowin/chathub/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log := logging.Init(logging.Config{
		Level:       config.LogLevel,
		Pretty:      config.LogPretty,
		ServiceName: "chathub",
	})

	srv, err := server.New(*config, log)
	if err != nil {
		return err
	}
	srv.StartHub()

	httpServer := server.CreateServer(config.Port, srv.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	if err := server.ShutdownServer(httpServer, config.ShutdownTimeout); err != nil {
		log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := srv.Hub().Shutdown(config.ShutdownTimeout); err != nil {
		return fmt.Errorf("hub shutdown: %w", err)
	}

	log.Info().Msg("Server stopped cleanly")
	return nil
}
