// Command hubcat is a terminal client for the chat hub. Lines typed on stdin
// are sent as messages; /users lists who is online and /quit leaves.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/chathub/internal/termclient"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config can be provided through the environment; flags override it.
type Config struct {
	URL      string `envconfig:"HUBCAT_URL" default:"ws://localhost:8080/ws"`
	Origin   string `envconfig:"HUBCAT_ORIGIN" default:"http://localhost:8080"`
	Nickname string `envconfig:"HUBCAT_NAME"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hubcat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	flag.StringVar(&cfg.URL, "url", cfg.URL, "hub WebSocket URL")
	flag.StringVar(&cfg.Origin, "origin", cfg.Origin, "Origin header sent during the handshake")
	flag.StringVar(&cfg.Nickname, "name", cfg.Nickname, "nickname shown to other participants")
	flag.Parse()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	header.Set("Origin", cfg.Origin)

	conn, resp, err := dialer.Dial(cfg.URL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.URL, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := &termclient.Session{
		Conn:     conn,
		Printer:  termclient.NewPrinter(os.Stdout),
		Nickname: cfg.Nickname,
	}
	return session.Run(ctx, os.Stdin)
}
