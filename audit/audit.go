package audit

import (
	"time"

	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("audit")

/**
 * Event is one structured audit entry. Internals of the downstream sink
 * are out of scope; the core only emits.
 */
type Event struct {
	Time     time.Time
	Op       string
	RecordId string
	Actor    types.ActorCode
	Outcome  string
	Detail   map[string]string
}

type Sink interface {
	Emit(event Event)
}

/**
 * LogSink writes audit events to the node log.
 */
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	log.Infow("audit",
		"op", event.Op,
		"record", event.RecordId,
		"actor", event.Actor.String(),
		"outcome", event.Outcome,
		"detail", event.Detail,
	)
}

// SideEffectOutcome folds a tri-state side task result into an event.
func SideEffectOutcome(op string, recordId string, effect types.SideEffect) Event {
	detail := map[string]string{"task": effect.Name}
	if effect.Reason != "" {
		detail["reason"] = effect.Reason
	}
	return Event{
		Op:       op,
		RecordId: recordId,
		Outcome:  string(effect.State),
		Detail:   detail,
	}
}
