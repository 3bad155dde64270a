package activity

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Target is the session a Monitor watches.
type Target interface {
	// Active is the side-effect free validity check.
	Active() bool
	Logout()
	RecordActivity()
}

// Refresher is implemented by targets that renew tokens ahead of expiry.
type Refresher interface {
	RefreshDue() bool
	Refresh(ctx context.Context) bool
}

const refreshTimeout = 30 * time.Second

// Monitor keeps a session's last activity current and logs it out once either
// expiry track runs out. Start and Stop are both idempotent.
type Monitor struct {
	target   Target
	source   Source
	kinds    []SignalKind
	interval time.Duration
	logger   zerolog.Logger

	lock        sync.Mutex
	stop        chan struct{}
	unsubscribe func()
}

type MonitorOption func(*Monitor)

func WithSignals(kinds ...SignalKind) MonitorOption {
	return func(m *Monitor) {
		m.kinds = slices.Clone(kinds)
	}
}

func WithLogger(logger zerolog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a stopped monitor. source may be nil, in which case only
// RecordActivity calls made directly on the target count as activity.
func NewMonitor(target Target, source Source, interval time.Duration, options ...MonitorOption) *Monitor {
	m := &Monitor{
		target:   target,
		source:   source,
		kinds:    slices.Clone(DefaultSignals),
		interval: interval,
		logger:   log.With().Str("component", "activity").Logger(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = time.Minute
	}
	return m
}

func (m *Monitor) Start() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	if m.source != nil {
		m.unsubscribe = m.source.Subscribe(m.kinds, func(Signal) {
			m.target.RecordActivity()
		})
	}
	go m.run(m.stop)
	m.logger.Debug().Dur("interval", m.interval).Msg("monitor started")
}

// Stop removes the signal subscription and ends the timer. It does not wait for
// an in-flight check, so it is safe to call from Target.Logout.
func (m *Monitor) Stop() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.stop == nil {
		return
	}
	close(m.stop)
	m.stop = nil
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.logger.Debug().Msg("monitor stopped")
}

func (m *Monitor) Running() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.stop != nil
}

func (m *Monitor) run(stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check runs one evaluation: logout when the target is no longer active,
// otherwise a proactive refresh when one is due.
func (m *Monitor) Check() {
	if !m.target.Active() {
		m.logger.Info().Msg("session no longer active, logging out")
		m.target.Logout()
		return
	}
	r, ok := m.target.(Refresher)
	if !ok || !r.RefreshDue() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if !r.Refresh(ctx) {
		m.logger.Warn().Msg("proactive refresh failed, session kept until expiry")
	}
}
