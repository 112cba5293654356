package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures every frame per connection and can be told to
// fail deliveries for chosen ids.
type recordingTransport struct {
	mu      sync.Mutex
	frames  map[string][]Envelope
	raw     map[string][]json.RawMessage
	failFor map[string]error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		frames:  make(map[string][]Envelope),
		raw:     make(map[string][]json.RawMessage),
		failFor: make(map[string]error),
	}
}

func (t *recordingTransport) Deliver(_ context.Context, id string, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err, ok := t.failFor[id]; ok {
		return err
	}
	var env InboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return err
	}
	t.frames[id] = append(t.frames[id], Envelope{Event: env.Event})
	t.raw[id] = append(t.raw[id], env.Data)
	return nil
}

func (t *recordingTransport) fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failFor[id] = err
}

func (t *recordingTransport) received(id string) []Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Envelope(nil), t.frames[id]...)
}

// lastData decodes the data of the most recent frame delivered to id.
func (t *recordingTransport) lastData(tb testing.TB, id string, into any) string {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()

	frames := t.frames[id]
	require.NotEmpty(tb, frames, "no frame delivered to %s", id)
	require.NoError(tb, json.Unmarshal(t.raw[id][len(frames)-1], into))
	return frames[len(frames)-1].Event
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = make(map[string][]Envelope)
	t.raw = make(map[string][]json.RawMessage)
}

func newTestRouter(tb testing.TB) (*Router, *recordingTransport) {
	tb.Helper()
	transport := newRecordingTransport()
	sanitizer, err := NewSanitizer(SanitizerConfig{})
	require.NoError(tb, err)
	router := NewRouter(logging.Nop(), NewRegistry(), NewBroadcaster(transport, 4), sanitizer)
	return router, transport
}

func rawJSON(tb testing.TB, v any) json.RawMessage {
	tb.Helper()
	b, err := json.Marshal(v)
	require.NoError(tb, err)
	return b
}
