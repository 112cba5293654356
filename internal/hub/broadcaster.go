//go:generate go run go.uber.org/mock/mockgen -source=broadcaster.go -destination=../mocks/mock_transport.go -package=mocks

package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultFanoutConcurrency bounds the goroutines used by one broadcast.
const DefaultFanoutConcurrency = 64

// Transport performs the actual write of an encoded frame to one connection.
// Deliver must not block for long; a delivery that cannot complete promptly
// is reported as an error.
type Transport interface {
	Deliver(ctx context.Context, id string, frame []byte) error
}

// Outcome is the result of delivering to one recipient. Err is nil when the
// frame was handed to the transport.
type Outcome struct {
	Recipient string
	Err       error
}

// DeliveryReport collects per-recipient outcomes of one broadcast.
type DeliveryReport struct {
	Outcomes []Outcome
}

// Recipients is the number of connections the payload was addressed to.
func (r DeliveryReport) Recipients() int {
	return len(r.Outcomes)
}

// Delivered lists recipients that received the payload.
func (r DeliveryReport) Delivered() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Err == nil {
			ids = append(ids, o.Recipient)
		}
	}
	return ids
}

// Failed lists the outcomes that did not reach their recipient.
func (r DeliveryReport) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Broadcaster fans a payload out to a fixed set of recipients. It owns no
// connection state.
type Broadcaster struct {
	transport   Transport
	concurrency int
}

// NewBroadcaster returns a Broadcaster delivering through t with at most
// concurrency deliveries in flight.
func NewBroadcaster(t Transport, concurrency int) *Broadcaster {
	if concurrency <= 0 {
		concurrency = DefaultFanoutConcurrency
	}
	return &Broadcaster{transport: t, concurrency: concurrency}
}

// Broadcast encodes payload once and delivers it to every recipient
// independently. A failed delivery is recorded and never stops the others;
// nothing is retried.
func (b *Broadcaster) Broadcast(ctx context.Context, payload Envelope, recipients []string) DeliveryReport {
	report := DeliveryReport{Outcomes: make([]Outcome, len(recipients))}
	if len(recipients) == 0 {
		return report
	}

	frame, err := json.Marshal(payload)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", payload.Event, err)
		for i, id := range recipients {
			report.Outcomes[i] = Outcome{Recipient: id, Err: err}
		}
		return report
	}

	if len(recipients) == 1 {
		report.Outcomes[0] = b.deliver(ctx, recipients[0], frame)
		return report
	}

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, id := range recipients {
		g.Go(func() error {
			report.Outcomes[i] = b.deliver(ctx, id, frame)
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// Send delivers payload to a single connection.
func (b *Broadcaster) Send(ctx context.Context, payload Envelope, recipient string) DeliveryReport {
	return b.Broadcast(ctx, payload, []string{recipient})
}

func (b *Broadcaster) deliver(ctx context.Context, id string, frame []byte) (out Outcome) {
	out.Recipient = id
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("deliver to %s panicked: %v", id, r)
		}
	}()

	if err := b.transport.Deliver(ctx, id, frame); err != nil {
		out.Err = err
	}
	return out
}
