package outbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

// mockDispatcher records dispatched actions and fails the action ids it is
// told to fail.
type mockDispatcher struct {
	mu    sync.Mutex
	calls []store.QueuedAction
	fail  map[string]error
}

func (m *mockDispatcher) Dispatch(_ context.Context, action store.QueuedAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, action)
	if err, ok := m.fail[action.ActionID]; ok {
		return err
	}
	return nil
}

func (m *mockDispatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueueMessageIsOptimistic(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	s := NewSender(db, &mockDispatcher{}, nil, b, "u1", zap.NewNop())

	msg, err := s.QueueMessage("room-1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if msg.DeliveryState != store.DeliverySending {
		t.Errorf("returned state = %q, want sending", msg.DeliveryState)
	}

	// The optimistic copy is readable before any drain runs.
	msgs, err := db.ListMessages("room-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].DeliveryState != store.DeliverySending || !msgs[0].FromMe {
		t.Errorf("stored message = %+v, want from-me sending", msgs[0])
	}
	n, _ := db.PendingCount()
	if n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
}

func TestDrainSettlesDelivery(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockDispatcher{}
	s := NewSender(db, mock, nil, b, "u1", zap.NewNop())

	if _, err := s.QueueMessage("room-1", "hello"); err != nil {
		t.Fatal(err)
	}
	s.Drain(context.Background())

	if mock.callCount() != 1 {
		t.Fatalf("dispatched %d actions, want 1", mock.callCount())
	}
	msgs, err := db.ListMessages("room-1")
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].DeliveryState != store.DeliveryDelivered {
		t.Errorf("state = %q, want delivered", msgs[0].DeliveryState)
	}
	n, _ := db.PendingCount()
	if n != 0 {
		t.Errorf("pending = %d after drain, want 0", n)
	}
}

// TestDrainPartitionsOnFailure: two queued actions where the first send
// succeeds and the second fails must leave exactly the second one queued.
func TestDrainPartitionsOnFailure(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockDispatcher{fail: map[string]error{}}
	s := NewSender(db, mock, nil, b, "u1", zap.NewNop())

	first, err := s.QueueMessage("room-1", "goes through")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.QueueMessage("room-1", "bounces")
	if err != nil {
		t.Fatal(err)
	}
	mock.fail[second.MsgID] = fmt.Errorf("connection reset")

	s.Drain(context.Background())

	pending, err := db.PendingActions(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want exactly 1", len(pending))
	}
	if pending[0].ActionID != second.MsgID {
		t.Errorf("remaining action = %q, want %q", pending[0].ActionID, second.MsgID)
	}
	if pending[0].ErrorMessage != "connection reset" {
		t.Errorf("error_message = %q", pending[0].ErrorMessage)
	}

	// Delivery states settle per message: first delivered, second failed.
	msgs, _ := db.ListMessages("room-1")
	states := map[string]string{}
	for _, m := range msgs {
		states[m.MsgID] = m.DeliveryState
	}
	if states[first.MsgID] != store.DeliveryDelivered {
		t.Errorf("first = %q, want delivered", states[first.MsgID])
	}
	if states[second.MsgID] != store.DeliveryFailed {
		t.Errorf("second = %q, want failed", states[second.MsgID])
	}
}

func TestFailedActionRetriesOnNextDrain(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockDispatcher{fail: map[string]error{}}
	s := NewSender(db, mock, nil, b, "u1", zap.NewNop())

	msg, err := s.QueueMessage("room-1", "eventually")
	if err != nil {
		t.Fatal(err)
	}
	mock.fail[msg.MsgID] = fmt.Errorf("offline")
	s.Drain(context.Background())

	// Connectivity returns.
	delete(mock.fail, msg.MsgID)
	s.Drain(context.Background())

	n, _ := db.PendingCount()
	if n != 0 {
		t.Errorf("pending = %d after retry drain, want 0", n)
	}
	msgs, _ := db.ListMessages("room-1")
	if msgs[0].DeliveryState != store.DeliveryDelivered {
		t.Errorf("state = %q, want delivered after retry", msgs[0].DeliveryState)
	}
	if mock.callCount() != 2 {
		t.Errorf("dispatched %d times, want 2", mock.callCount())
	}
}

func TestOnlineEventTriggersDrain(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockDispatcher{}
	s := NewSender(db, mock, nil, b, "u1", zap.NewNop())

	if _, err := s.QueueMessage("room-1", "hello"); err != nil {
		t.Fatal(err)
	}

	sent, unsub := b.Subscribe("outbox.sent", 4)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	b.Publish(bus.Event{Kind: "net.online", Timestamp: time.Now()})

	select {
	case <-sent:
	case <-time.After(3 * time.Second):
		t.Fatal("online event did not trigger a drain")
	}
}

func TestStartRecoversStuckActions(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockDispatcher{}
	s := NewSender(db, mock, nil, b, "u1", zap.NewNop())

	msg, err := s.QueueMessage("room-1", "interrupted")
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a crash mid-drain: claimed but never settled.
	if _, err := db.MarkActionSending(msg.MsgID); err != nil {
		t.Fatal(err)
	}

	sent, unsub := b.Subscribe("outbox.sent", 4)
	defer unsub()

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("stuck action was not recovered and sent")
	}
}

// TestSetSenderIDMidSession: a login while the daemon is already queueing
// must not corrupt sender ids; later messages carry the new id.
func TestSetSenderIDMidSession(t *testing.T) {
	db := testDB(t)
	s := NewSender(db, &mockDispatcher{}, nil, bus.New(), "", zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.SetSenderID(fmt.Sprintf("u%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.QueueMessage("room-1", "hi"); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	s.SetSenderID("u-final")
	msg, err := s.QueueMessage("room-1", "after login")
	if err != nil {
		t.Fatal(err)
	}
	if msg.SenderID != "u-final" {
		t.Errorf("sender id = %q, want u-final", msg.SenderID)
	}
}
