// Package activity tracks user interaction for a session and enforces its
// inactivity and expiry tracks without polling by callers.
package activity

import (
	"sync"
	"time"
)

// SignalKind is a type of user interaction.
type SignalKind string

const (
	PointerDown SignalKind = "pointerdown"
	PointerMove SignalKind = "pointermove"
	KeyDown     SignalKind = "keydown"
	Scroll      SignalKind = "scroll"
	TouchStart  SignalKind = "touchstart"
	Click       SignalKind = "click"
	Request     SignalKind = "request" // inbound request to a server-rendered UI
)

// DefaultSignals is every interaction a monitor listens to.
var DefaultSignals = []SignalKind{PointerDown, PointerMove, KeyDown, Scroll, TouchStart, Click, Request}

type Signal struct {
	Kind SignalKind
	At   time.Time
}

// Source delivers interaction signals. The returned func unsubscribes and may be
// called more than once.
type Source interface {
	Subscribe(kinds []SignalKind, fn func(Signal)) (unsubscribe func())
}

// Publisher accepts interaction signals from a UI layer.
type Publisher interface {
	Publish(Signal)
}

type subscription struct {
	kinds map[SignalKind]struct{}
	fn    func(Signal)
}

// Bus is an in-process Source and Publisher.
type Bus struct {
	subs   map[uint64]*subscription
	nextID uint64
	lock   sync.RWMutex
}

var (
	_ Source    = (*Bus)(nil)
	_ Publisher = (*Bus)(nil)
)

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

func (b *Bus) Subscribe(kinds []SignalKind, fn func(Signal)) func() {
	sub := &subscription{kinds: make(map[SignalKind]struct{}, len(kinds)), fn: fn}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}

	b.lock.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.lock.Lock()
			delete(b.subs, id)
			b.lock.Unlock()
		})
	}
}

// Publish delivers s synchronously to every subscriber of its kind. A zero
// timestamp is filled with the current time.
func (b *Bus) Publish(s Signal) {
	if s.At.IsZero() {
		s.At = time.Now()
	}

	b.lock.RLock()
	fns := make([]func(Signal), 0, len(b.subs))
	for _, sub := range b.subs {
		if _, ok := sub.kinds[s.Kind]; ok {
			fns = append(fns, sub.fn)
		}
	}
	b.lock.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.subs)
}
