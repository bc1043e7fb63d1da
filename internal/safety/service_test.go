package safety

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

type fakeNotifier struct {
	calls []string
	fail  map[string]error
}

func (f *fakeNotifier) NotifySOS(_ context.Context, c store.SafetyContact, _, _ *float64) error {
	f.calls = append(f.calls, c.Name)
	if err, ok := f.fail[c.Name]; ok {
		return err
	}
	return nil
}

func testService(t *testing.T) (*Service, *fakeNotifier, *store.DB) {
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
	n := &fakeNotifier{fail: map[string]error{}}
	return NewService(db, n, bus.New(), zap.NewNop()), n, db
}

// An empty safety circle yields success=false with no send attempts.
func TestSendSOSEmptyCircle(t *testing.T) {
	s, n, db := testService(t)

	res, err := s.SendSOS(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("success = true with empty circle")
	}
	if res.Message != "no contacts in safety circle" {
		t.Errorf("message = %q", res.Message)
	}
	if len(n.calls) != 0 {
		t.Errorf("made %d send attempts, want 0", len(n.calls))
	}
	events, _ := db.ListSOSEvents()
	if len(events) != 0 {
		t.Errorf("recorded %d events, want 0", len(events))
	}
}

func TestSendSOSNotifiesEveryone(t *testing.T) {
	s, n, db := testService(t)

	for _, name := range []string{"Amma", "Ravi"} {
		if _, err := s.AddContact(name, "+91900000000", "family"); err != nil {
			t.Fatal(err)
		}
	}

	lat, long := 12.97, 77.59
	res, err := s.SendSOS(context.Background(), &lat, &long, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.ContactsNotified != 2 || res.ContactsTotal != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(n.calls) != 2 {
		t.Errorf("notified %d contacts, want 2", len(n.calls))
	}

	events, err := db.ListSOSEvents()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Latitude == nil || *events[0].Latitude != 12.97 {
		t.Errorf("latitude = %v", events[0].Latitude)
	}
}

func TestSendSOSPartialDelivery(t *testing.T) {
	s, n, _ := testService(t)

	if _, err := s.AddContact("Amma", "1", "family"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddContact("Ravi", "2", "brother"); err != nil {
		t.Fatal(err)
	}
	n.fail["Ravi"] = fmt.Errorf("unreachable")

	res, err := s.SendSOS(context.Background(), nil, nil, "location unavailable")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Error("partial delivery should still count as success")
	}
	if res.ContactsNotified != 1 || res.ContactsTotal != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestContactManagement(t *testing.T) {
	s, _, _ := testService(t)

	c, err := s.AddContact("Amma", "+919000000001", "mother")
	if err != nil {
		t.Fatal(err)
	}
	contacts, err := s.Contacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Amma" {
		t.Errorf("contacts = %v", contacts)
	}

	if err := s.RemoveContact(c.ID); err != nil {
		t.Fatal(err)
	}
	contacts, _ = s.Contacts()
	if len(contacts) != 0 {
		t.Errorf("contacts = %v after removal", contacts)
	}
}
