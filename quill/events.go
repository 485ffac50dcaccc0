package quill

import "time"

// EventKind identifies one observable event family. Each kind owns one
// bit in the context's EventMask.
type EventKind int

const (
	EventStepComplete EventKind = iota
	EventFramePush
	EventFramePop
	EventVariable
	EventError
	EventStackOverflow
	EventHalt
	EventCustom
)

var eventKindNames = map[EventKind]string{
	EventStepComplete:  "step_complete",
	EventFramePush:     "frame_push",
	EventFramePop:      "frame_pop",
	EventVariable:      "variable",
	EventError:         "error",
	EventStackOverflow: "stack_overflow",
	EventHalt:          "halt",
	EventCustom:        "custom",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k EventKind) bit() EventMask { return 1 << uint(k) }

// EventMask selects which event kinds are recorded and dispatched.
type EventMask uint32

// MaskAll enables every event kind.
const MaskAll EventMask = ^EventMask(0)

func (m EventMask) Has(kind EventKind) bool { return m&kind.bit() != 0 }

func (m EventMask) With(kinds ...EventKind) EventMask {
	for _, k := range kinds {
		m |= k.bit()
	}
	return m
}

func (m EventMask) Without(kinds ...EventKind) EventMask {
	for _, k := range kinds {
		m &^= k.bit()
	}
	return m
}

// MaskOf builds a mask enabling exactly the given kinds.
func MaskOf(kinds ...EventKind) EventMask {
	return EventMask(0).With(kinds...)
}

// Event is one recorded observation. Data is event-specific: the
// *Error for error events, a map of details otherwise.
type Event struct {
	Kind       EventKind
	Data       any
	ContextRef string
	FrameRef   string
	Time       time.Time
}

// Subscriber receives fire-and-forget event notifications. A non-nil
// error from Notify marks the subscriber dead; it is pruned from the
// context on that same delivery pass.
type Subscriber interface {
	Notify(Event) error
}

// ChannelSubscriber bridges the bus to a channel-consuming process.
// Delivery never blocks: a full buffer drops the event, a closed
// subscriber reports failure and is pruned.
type ChannelSubscriber struct {
	events chan Event
	done   chan struct{}
}

func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelSubscriber{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events exposes the receive side of the subscription.
func (s *ChannelSubscriber) Events() <-chan Event { return s.events }

// Close marks the subscriber dead. The next delivery attempt prunes it.
func (s *ChannelSubscriber) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *ChannelSubscriber) Notify(ev Event) error {
	select {
	case <-s.done:
		return NewError(ErrReference, "subscriber closed")
	default:
	}
	select {
	case s.events <- ev:
		return nil
	default:
		// Slow consumer: drop rather than stall the evaluation.
		return nil
	}
}

// AddEvent records an event and notifies subscribers. A kind whose bit
// is cleared in the mask is a complete no-op: no history entry and no
// delivery. After delivery the subscriber set is replaced atomically
// with the survivors.
func (c *Context) AddEvent(kind EventKind, data any) {
	if !c.eventMask.Has(kind) {
		return
	}
	ev := Event{
		Kind:       kind,
		Data:       data,
		ContextRef: c.ref,
		Time:       time.Now(),
	}
	if frame := c.CurrentFrame(); frame != nil {
		ev.FrameRef = frame.Ref()
	}
	c.eventHistory = append(c.eventHistory, ev)
	if c.maxEvents > 0 && len(c.eventHistory) > c.maxEvents {
		c.eventHistory = c.eventHistory[len(c.eventHistory)-c.maxEvents:]
	}
	if len(c.subscribers) == 0 {
		return
	}
	alive := c.subscribers[:0:0]
	for _, sub := range c.subscribers {
		if err := sub.Notify(ev); err == nil {
			alive = append(alive, sub)
		}
	}
	c.subscribers = alive
}

// GetEvents returns up to limit most recent events of the given kinds
// (all kinds when the filter is empty). limit <= 0 means no limit.
func (c *Context) GetEvents(filter EventMask, limit int) []Event {
	matched := make([]Event, 0, len(c.eventHistory))
	for _, ev := range c.eventHistory {
		if filter == 0 || filter.Has(ev.Kind) {
			matched = append(matched, ev)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// ClearEvents drops the recorded history. Subscribers are unaffected.
func (c *Context) ClearEvents() {
	c.eventHistory = nil
}
