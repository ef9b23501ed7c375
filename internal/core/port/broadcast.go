package port

import "context"

// Message is a best-effort notification exchanged between contexts over a
// broadcast channel.
type Message struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Broadcaster is a same-origin publish/subscribe transport independent of
// the backing store. A handle never receives the messages it published.
type Broadcaster interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers fn for messages published by other handles and
	// returns a function that cancels the registration.
	Subscribe(fn func(Message)) (cancel func())
}

// LocalEvents dispatches synchronous events between components of one
// context. A listener does not receive events dispatched with its own
// source token.
type LocalEvents interface {
	Listen(source any, fn func(Message)) (cancel func())
	Dispatch(source any, msg Message)
}
