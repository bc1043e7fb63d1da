package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
)

// Bus event kinds published on connectivity edges.
const (
	EventOnline  = "net.online"
	EventOffline = "net.offline"
)

// ProbeFunc reports whether the network currently looks reachable.
type ProbeFunc func(ctx context.Context) bool

// Monitor polls a reachability probe and publishes edge events when the
// answer flips. IsOnline is a hint, not a guarantee: the probe may be stale
// by up to one interval, so senders must still handle failures.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	bus      *bus.Bus
	log      *zap.Logger

	mu     sync.Mutex
	online bool
	primed bool
	cancel context.CancelFunc
}

// HTTPProbe builds a ProbeFunc that issues a HEAD request against url. Any
// HTTP response counts as online; only transport errors count as offline.
func HTTPProbe(url string, client *http.Client) ProbeFunc {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}
}

// NewMonitor creates a monitor. Start must be called to begin polling.
func NewMonitor(probe ProbeFunc, interval time.Duration, b *bus.Bus, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		bus:      b,
		log:      log.Named("connectivity"),
	}
}

// Start begins polling until Stop or context cancellation. The first probe
// runs immediately so IsOnline is primed before the first tick.
func (m *Monitor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.check(runCtx)
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.check(runCtx)
			}
		}
	}()
}

// Stop halts polling.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
}

// IsOnline returns the last probe result.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) check(ctx context.Context) {
	online := m.probe(ctx)

	m.mu.Lock()
	changed := !m.primed || online != m.online
	m.online = online
	m.primed = true
	m.mu.Unlock()

	if !changed {
		return
	}
	kind := EventOffline
	if online {
		kind = EventOnline
	}
	m.log.Info("connectivity changed", zap.Bool("online", online))
	m.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now()})
}
