package log

import "sync"

// Recorder keeps events in memory. It is used by tests and by the
// interactive console to show recent traffic.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder creates a Recorder holding at most limit events.
// A limit of 0 keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Log stores the event, dropping the oldest one when full.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the stored events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns the stored events matching f.
func (r *Recorder) Filter(f Filter) []Event {
	var out []Event
	for _, e := range r.Events() {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
