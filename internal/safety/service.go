package safety

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

// Notifier delivers one SOS alert to one contact.
type Notifier interface {
	NotifySOS(ctx context.Context, contact store.SafetyContact, lat, long *float64) error
}

// Result summarizes one SOS trigger.
type Result struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ContactsNotified int    `json:"contactsNotified"`
	ContactsTotal    int    `json:"contactsTotal"`
	EventID          int64  `json:"eventId,omitempty"`
}

// Service manages the safety circle and SOS alerts.
type Service struct {
	db       *store.DB
	notifier Notifier
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewService creates a safety service.
func NewService(db *store.DB, n Notifier, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{db: db, notifier: n, bus: b, logger: logger.Named("safety")}
}

// AddContact adds a contact to the safety circle.
func (s *Service) AddContact(name, phone, relation string) (*store.SafetyContact, error) {
	c := &store.SafetyContact{Name: name, Phone: phone, Relation: relation}
	id, err := s.db.AddSafetyContact(c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// RemoveContact removes a contact by id.
func (s *Service) RemoveContact(id int64) error {
	return s.db.RemoveSafetyContact(id)
}

// Contacts returns the safety circle.
func (s *Service) Contacts() ([]store.SafetyContact, error) {
	return s.db.ListSafetyContacts()
}

// History returns recorded SOS events, newest first.
func (s *Service) History() ([]store.SOSEvent, error) {
	return s.db.ListSOSEvents()
}

// SendSOS alerts every contact in the safety circle. An empty circle is not
// an error: the result reports failure with no send attempts, and nothing is
// recorded. Partial delivery still counts as success; the event records how
// many contacts were actually reached.
func (s *Service) SendSOS(ctx context.Context, lat, long *float64, locationError string) (*Result, error) {
	contacts, err := s.db.ListSafetyContacts()
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return &Result{Success: false, Message: "no contacts in safety circle"}, nil
	}

	notified := 0
	for _, c := range contacts {
		if err := s.notifier.NotifySOS(ctx, c, lat, long); err != nil {
			s.logger.Error("failed to notify contact",
				zap.String("contact", c.Name),
				zap.Error(err))
			continue
		}
		notified++
	}

	eventID, err := s.db.RecordSOSEvent(&store.SOSEvent{
		TriggeredAt:      time.Now().UnixMilli(),
		Latitude:         lat,
		Longitude:        long,
		LocationError:    locationError,
		ContactsNotified: notified,
		ContactsTotal:    len(contacts),
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(bus.Event{
		Kind:      "safety.sos_triggered",
		Timestamp: time.Now(),
		Payload:   map[string]int{"notified": notified, "total": len(contacts)},
	})

	msg := "alert sent to safety circle"
	if notified < len(contacts) {
		msg = "alert sent to part of safety circle"
	}
	return &Result{
		Success:          notified > 0,
		Message:          msg,
		ContactsNotified: notified,
		ContactsTotal:    len(contacts),
		EventID:          eventID,
	}, nil
}
