package termclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/gorilla/websocket"
)

const (
	commandUsers = "/users"
	commandQuit  = "/quit"
)

// ParseInput maps one typed line onto the envelope to send. ok is false for
// blank lines; quit is true for the quit command.
func ParseInput(line, nickname string) (env hub.Envelope, ok, quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return hub.Envelope{}, false, false
	case line == commandQuit:
		return hub.Envelope{}, false, true
	case line == commandUsers:
		return hub.Envelope{Event: "get_users"}, true, false
	default:
		return hub.Envelope{Event: "message", Data: map[string]string{
			"message":   line,
			"username":  nickname,
			"timestamp": time.Now().Format("15:04:05"),
		}}, true, false
	}
}

// Session pumps lines from in to the hub and frames from the hub to the
// printer until in is exhausted, the quit command is typed, the connection
// drops, or ctx is cancelled.
type Session struct {
	Conn     *websocket.Conn
	Printer  *Printer
	Nickname string
}

func (s *Session) Run(ctx context.Context, in io.Reader) error {
	readErr := make(chan error, 1)
	go func() {
		for {
			_, frame, err := s.Conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if err := s.Printer.Print(frame); err != nil {
				readErr <- err
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return s.close()
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		case line, open := <-lines:
			if !open {
				return s.close()
			}
			env, ok, quit := ParseInput(line, s.Nickname)
			if quit {
				return s.close()
			}
			if !ok {
				continue
			}
			if err := s.Conn.WriteJSON(env); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (s *Session) close() error {
	err := s.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		_ = s.Conn.Close()
		return fmt.Errorf("close: %w", err)
	}
	return s.Conn.Close()
}
