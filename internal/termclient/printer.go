// Package termclient is a line-oriented terminal client for the chat hub. It
// renders hub frames for humans and turns typed lines into hub envelopes.
package termclient

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strconv"
	"sync"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Printer writes decoded hub frames to out. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Print renders one frame received from the hub.
func (p *Printer) Print(frame []byte) error {
	var env hub.InboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch env.Event {
	case hub.NameStatus:
		var s hub.StatusPayload
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		_, err := fmt.Fprintln(p.out, color.Gray.Sprintf("* %s (%d online)", unescape(s.Msg), s.UserCount))
		return err

	case hub.NameResponse:
		var r hub.ResponsePayload
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		_, err := fmt.Fprintf(p.out, "%s %s: %s\n",
			color.Gray.Sprintf("[%s]", unescape(r.Timestamp)),
			color.Cyan.Sprint(unescape(r.Username)),
			unescape(r.Message))
		return err

	case hub.NameError:
		var e hub.ErrorPayload
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return fmt.Errorf("decode error: %w", err)
		}
		_, err := fmt.Fprintln(p.out, color.Red.Sprint("! "+e.Msg))
		return err

	case hub.NameUserList:
		var list hub.UserListPayload
		if err := json.Unmarshal(env.Data, &list); err != nil {
			return fmt.Errorf("decode user list: %w", err)
		}
		p.printUsers(list)
		return nil

	default:
		_, err := fmt.Fprintln(p.out, color.Yellow.Sprintf("? unknown event %q", env.Event))
		return err
	}
}

func (p *Printer) printUsers(list hub.UserListPayload) {
	table := tablewriter.NewWriter(p.out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "ID", "Nickname"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, u := range list.Users {
		table.Append([]string{strconv.Itoa(i + 1), u.ID, unescape(u.Nickname)})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d online", list.Count)})
	table.Render()
}

// unescape reverses the hub's markup escaping; a terminal renders no HTML.
func unescape(s string) string {
	return html.UnescapeString(s)
}
