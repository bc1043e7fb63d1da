package bus

import "time"

// Event is one item on the bus. Kind is a dot-separated name ("rt.receive_message",
// "net.offline"); Payload is kind-specific and may be nil.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
