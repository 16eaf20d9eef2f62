package events

import (
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/sas/cidutil"
	"xdao.co/sas/storage"
)

// Sink receives emitted events.
type Sink interface {
	Emit(e Event) error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) error { return nil }

// Recorder keeps emitted events in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Archive stores encoded events in a CAS and keeps their CIDs in emission
// order.
type Archive struct {
	CAS storage.CAS

	mu  sync.Mutex
	ids []cid.Cid
}

func NewArchive(cas storage.CAS) *Archive {
	return &Archive{CAS: cas}
}

func (a *Archive) Emit(e Event) error {
	if a == nil || a.CAS == nil {
		return fmt.Errorf("events: archive has no CAS")
	}
	b, err := e.Encode()
	if err != nil {
		return err
	}
	id, err := a.CAS.Put(b)
	if err != nil {
		return fmt.Errorf("events: archive %s: %w", e.Discriminator(), err)
	}
	a.mu.Lock()
	a.ids = append(a.ids, id)
	a.mu.Unlock()
	return nil
}

// Index returns the archived event CIDs in emission order.
func (a *Archive) Index() []cid.Cid {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]cid.Cid(nil), a.ids...)
}

// Load reads and decodes an archived event.
func (a *Archive) Load(id cid.Cid) (Event, error) {
	b, err := a.CAS.Get(id)
	if err != nil {
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, fmt.Errorf("events: %s: %w", id, storage.ErrCIDMismatch)
	}
	return Decode(b)
}
