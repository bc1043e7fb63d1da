package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/auth"
	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/lock"
	"github.com/sakhihub/sakhi/internal/outbox"
	"github.com/sakhihub/sakhi/internal/realtime"
	"github.com/sakhihub/sakhi/internal/status"
	"github.com/sakhihub/sakhi/internal/store"
	intsync "github.com/sakhihub/sakhi/internal/sync"
)

// socketClient returns an HTTP client that dials the given Unix socket.
func socketClient(socketPath string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 5 * time.Second,
	}
}

func TestServerLifecycle(t *testing.T) {
	// Use a short path to avoid macOS 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "sakhi-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	profileDir := filepath.Join(tmpDir, "p")
	socketPath := filepath.Join(profileDir, "d.sock")
	if err := os.MkdirAll(profileDir, 0700); err != nil {
		t.Fatal(err)
	}

	lk, err := lock.Acquire(profileDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"state": "BOOTING"})
	})

	srv, err := NewServer(Params{ProfileName: "test", SocketPath: socketPath}, zap.NewNop(), mux)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	defer srv.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)

	resp, err := socketClient(socketPath).Get("http://daemon/api/status")
	if err != nil {
		t.Fatalf("request over socket: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "BOOTING" {
		t.Errorf("state = %q", body["state"])
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket permission = %o, want 0600", perm)
	}
}

func TestStaleSocketCleanedUp(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "sakhi-stale-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(Params{ProfileName: "test", SocketPath: socketPath}, zap.NewNop(), http.NewServeMux())
	if err != nil {
		t.Fatalf("NewServer with stale socket: %v", err)
	}
	srv.Stop(context.Background())
}

func newTestSupervisor(t *testing.T) (*supervisor, *status.Machine, *bus.Bus, *auth.Manager) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := zap.NewNop()
	b := bus.New()
	machine := status.NewMachine(b)
	authMgr := auth.NewManager(db, log)
	rt := realtime.New(realtime.Config{URL: "ws://127.0.0.1:0/ws", MaxAttempts: 1, RetryDelay: time.Millisecond}, b, log)
	engine := intsync.NewEngine(db, b, nil, "", log)
	sender := outbox.NewSender(db, outbox.NewRealtimeDispatcher(rt), nil, b, "", log)

	s := newSupervisor(machine, rt, engine, sender, authMgr, b, log)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, machine, b, authMgr
}

func waitForState(t *testing.T, m *status.Machine, want status.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Current() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %q, want %q", m.Current(), want)
}

func TestSupervisorReadyOnConnectAck(t *testing.T) {
	_, machine, b, _ := newTestSupervisor(t)

	if err := machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	b.Publish(bus.Event{Kind: "rt.connect_ack", Timestamp: time.Now()})
	waitForState(t, machine, status.Ready)
}

func TestSupervisorOfflineOnNetworkLoss(t *testing.T) {
	_, machine, b, _ := newTestSupervisor(t)

	if err := machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	b.Publish(bus.Event{Kind: "rt.connect_ack", Timestamp: time.Now()})
	waitForState(t, machine, status.Ready)

	b.Publish(bus.Event{Kind: "net.offline", Timestamp: time.Now()})
	waitForState(t, machine, status.Offline)
}

func TestSupervisorStaysOfflineWhenLoggedOut(t *testing.T) {
	_, machine, b, _ := newTestSupervisor(t)

	if err := machine.Transition(status.Offline); err != nil {
		t.Fatal(err)
	}
	// Network recovery without a session must not start connecting.
	b.Publish(bus.Event{Kind: "net.online", Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)
	if machine.Current() != status.Offline {
		t.Errorf("state = %q, want OFFLINE while logged out", machine.Current())
	}
}

func TestSupervisorGaveUpParksOffline(t *testing.T) {
	_, machine, b, _ := newTestSupervisor(t)

	if err := machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	b.Publish(bus.Event{Kind: "rt.gave_up", Timestamp: time.Now()})
	waitForState(t, machine, status.Offline)
}
