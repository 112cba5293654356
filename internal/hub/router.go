package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const genericErrorMsg = "Something went wrong with your connection."

// Emission records one payload produced while routing an event and the
// delivery outcome for each addressed connection.
type Emission struct {
	Payload Envelope
	Report  DeliveryReport
}

// Router is the per-connection state machine. It decides, for each inbound
// event, how the Registry changes and which payloads go to whom.
type Router struct {
	log         zerolog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	sanitizer   *Sanitizer
}

// NewRouter wires a Router over its collaborators.
func NewRouter(log zerolog.Logger, registry *Registry, broadcaster *Broadcaster, sanitizer *Sanitizer) *Router {
	return &Router{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		sanitizer:   sanitizer,
	}
}

// Registry exposes the registry the router mutates.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Route applies evt and returns what was emitted. It never fails; errors
// tied to a single connection are reported to that connection or dropped.
func (r *Router) Route(ctx context.Context, evt Event) []Emission {
	switch evt.Kind {
	case EventConnect:
		return r.connect(ctx, evt.ConnID)
	case EventDisconnect:
		return r.disconnect(ctx, evt.ConnID)
	case EventMessage:
		return r.message(ctx, evt.ConnID, evt)
	case EventGetUsers:
		return r.getUsers(ctx, evt.ConnID)
	case EventTransportError:
		return r.transportError(ctx, evt.ConnID, evt.Err)
	default:
		r.log.Warn().Str(logging.FieldConnID, evt.ConnID).Stringer(logging.FieldEvent, evt.Kind).Msg("Ignoring unknown event")
		return nil
	}
}

func (r *Router) connect(ctx context.Context, id string) []Emission {
	if !r.registry.Register(id) {
		r.log.Warn().Str(logging.FieldConnID, id).Msg("Duplicate connect ignored")
		return nil
	}

	recipients := r.registry.IDs()
	r.log.Info().Str(logging.FieldConnID, id).Int(logging.FieldUserCount, len(recipients)).Msg("Connection registered")

	status := Envelope{Event: NameStatus, Data: StatusPayload{
		Msg:       fmt.Sprintf("%s joined the chat.", GuestName(id)),
		Type:      StatusJoin,
		UserCount: len(recipients),
	}}
	return r.emit(ctx, status, recipients)
}

func (r *Router) disconnect(ctx context.Context, id string) []Emission {
	conn, err := r.registry.Unregister(id)
	if errors.Is(err, ErrNotFound) {
		r.log.Debug().Str(logging.FieldConnID, id).Msg("Disconnect for unknown connection")
		return nil
	}

	recipients := r.registry.IDs()
	r.log.Info().Str(logging.FieldConnID, id).Int(logging.FieldUserCount, len(recipients)).Msg("Connection unregistered")

	status := Envelope{Event: NameStatus, Data: StatusPayload{
		Msg:       fmt.Sprintf("%s left the chat.", conn.DisplayName()),
		Type:      StatusLeave,
		UserCount: len(recipients),
	}}
	return r.emit(ctx, status, recipients)
}

func (r *Router) message(ctx context.Context, id string, evt Event) []Emission {
	if _, live := r.registry.Lookup(id); !live {
		r.log.Debug().Str(logging.FieldConnID, id).Msg("Message from unknown connection dropped")
		return nil
	}

	msg, err := r.sanitizer.Validate(id, evt.Payload)
	if err != nil {
		return r.rejected(ctx, id, err)
	}

	if err := r.registry.SetNickname(id, msg.Username); err != nil {
		r.log.Debug().Str(logging.FieldConnID, id).Msg("Connection left before its message was broadcast")
		return nil
	}
	r.log.Debug().Str(logging.FieldConnID, id).Str(logging.FieldNickname, msg.Username).Msg("Message accepted")

	return r.emit(ctx, Envelope{Event: NameResponse, Data: msg.payload()}, r.registry.IDs())
}

func (r *Router) rejected(ctx context.Context, id string, err error) []Emission {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return r.transportError(ctx, id, err)
	}

	r.log.Debug().Str(logging.FieldConnID, id).Err(err).Msg("Message rejected")
	if errors.Is(verr, ErrEmptyMessage) {
		return nil
	}
	return r.reply(ctx, Envelope{Event: NameError, Data: ErrorPayload{Msg: verr.Msg}}, id)
}

func (r *Router) getUsers(ctx context.Context, id string) []Emission {
	snapshot := r.registry.Snapshot()
	users := lo.Map(snapshot, func(c Connection, _ int) UserEntry {
		return UserEntry{ID: ShortID(c.ID), Nickname: c.DisplayName()}
	})

	list := Envelope{Event: NameUserList, Data: UserListPayload{Users: users, Count: len(users)}}
	return r.reply(ctx, list, id)
}

func (r *Router) transportError(ctx context.Context, id string, err error) []Emission {
	r.log.Warn().Str(logging.FieldConnID, id).Err(err).Msg("Transport error")
	return r.reply(ctx, Envelope{Event: NameError, Data: ErrorPayload{Msg: genericErrorMsg}}, id)
}

func (r *Router) emit(ctx context.Context, payload Envelope, recipients []string) []Emission {
	return r.record(payload, r.broadcaster.Broadcast(ctx, payload, recipients))
}

// reply addresses payload to the connection that caused it.
func (r *Router) reply(ctx context.Context, payload Envelope, id string) []Emission {
	return r.record(payload, r.broadcaster.Send(ctx, payload, id))
}

func (r *Router) record(payload Envelope, report DeliveryReport) []Emission {
	if failed := report.Failed(); len(failed) > 0 {
		r.log.Warn().
			Str(logging.FieldEvent, payload.Event).
			Int(logging.FieldRecipients, report.Recipients()).
			Int(logging.FieldFailed, len(failed)).
			Err(failed[0].Err).
			Msg("Some deliveries failed")
	}
	return []Emission{{Payload: payload, Report: report}}
}
