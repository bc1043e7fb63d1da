package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/auth"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/outbox"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/status"
	intsync "github.com/sakhihub/sakhi/internal/sync"
)

// supervisor drives the daemon state machine from bus events: realtime
// session lifecycle, connectivity edges and auth changes.
type supervisor struct {
	machine *status.Machine
	rt      *realtime.Client
	engine  *intsync.Engine
	sender  *outbox.Sender
	auth    *auth.Manager
	bus     *bus.Bus
	logger  *zap.Logger
	cancel  context.CancelFunc
}

func newSupervisor(m *status.Machine, rt *realtime.Client, e *intsync.Engine, s *outbox.Sender, a *auth.Manager, b *bus.Bus, logger *zap.Logger) *supervisor {
	return &supervisor{
		machine: m,
		rt:      rt,
		engine:  e,
		sender:  s,
		auth:    a,
		bus:     b,
		logger:  logger.Named("supervisor"),
	}
}

func (s *supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := s.bus.Subscribe("", 64)

	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-ch:
				s.handle(ctx, evt)
			}
		}
	}()
}

func (s *supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *supervisor) handle(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "auth.logged_in":
		userID, _ := evt.Payload.(string)
		s.rt.SetCredentials(s.auth.Token(), userID)
		s.engine.SetUserID(userID)
		s.sender.SetSenderID(userID)
		s.transition(status.Connecting)
		go func() {
			if err := s.rt.Connect(ctx); err != nil {
				s.logger.Warn("connect after login failed", zap.Error(err))
				s.transition(status.Offline)
			}
		}()

	case "auth.logged_out":
		_ = s.rt.Close()
		s.transition(status.AuthRequired)

	case "rt.connect_ack":
		s.transition(status.Ready)

	case "rt.gave_up":
		// Reconnects exhausted: park offline until the probe sees the
		// network again.
		s.transition(status.Offline)

	case "net.offline":
		s.transition(status.Offline)

	case "net.online":
		if s.machine.Current() != status.Offline || !s.auth.LoggedIn() {
			return
		}
		s.transition(status.Connecting)
		go func() {
			if err := s.rt.Connect(ctx); err != nil {
				s.logger.Warn("reconnect after network recovery failed", zap.Error(err))
				s.transition(status.Offline)
			}
		}()
	}
}

func (s *supervisor) transition(to status.State) {
	if err := s.machine.Transition(to); err != nil {
		s.logger.Debug("skipped transition", zap.String("to", string(to)), zap.Error(err))
	}
}
