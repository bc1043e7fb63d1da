package safety

import (
	"context"
	"fmt"

	"github.com/sakhihub/sakhi/internal/store"
)

// LocationSharer is the realtime surface the notifier needs.
type LocationSharer interface {
	ShareLocation(ctx context.Context, roomID string, lat, long float64) error
	JoinRoom(ctx context.Context, roomID string) error
}

// RealtimeNotifier broadcasts SOS alerts over the realtime channel, one
// emergency room per contact phone number so the receiving app can route the
// alert.
type RealtimeNotifier struct {
	rt LocationSharer
}

// NewRealtimeNotifier creates a notifier over the given sharer.
func NewRealtimeNotifier(rt LocationSharer) *RealtimeNotifier {
	return &RealtimeNotifier{rt: rt}
}

// NotifySOS shares the current location into the contact's emergency room.
// Without a fix the alert still goes out with zeroed coordinates.
func (n *RealtimeNotifier) NotifySOS(ctx context.Context, contact store.SafetyContact, lat, long *float64) error {
	room := fmt.Sprintf("sos-%s", contact.Phone)
	if err := n.rt.JoinRoom(ctx, room); err != nil {
		return err
	}
	var la, lo float64
	if lat != nil {
		la = *lat
	}
	if long != nil {
		lo = *long
	}
	return n.rt.ShareLocation(ctx, room, la, lo)
}
