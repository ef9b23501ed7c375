package memory

import (
	"context"
	"sync"

	"agency-hub/internal/core/port"
)

// Channel is one context's handle on a named broadcast channel of the
// origin. It implements port.Broadcaster.
type Channel struct {
	origin *Origin
	name   string
}

type subscriber struct {
	owner *Channel
	box   *mailbox[port.Message]
}

// Channel returns a new context handle on the named broadcast channel.
func (o *Origin) Channel(name string) *Channel {
	return &Channel{origin: o, name: name}
}

// Publish implements port.Broadcaster. Delivery is asynchronous and never
// reaches subscribers registered through this same handle.
func (c *Channel) Publish(ctx context.Context, msg port.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := c.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	for sub := range o.channels[c.name] {
		if sub.owner != c {
			sub.box.post(msg)
		}
	}
	return nil
}

// Subscribe implements port.Broadcaster.
func (c *Channel) Subscribe(fn func(port.Message)) func() {
	sub := &subscriber{owner: c, box: newMailbox(fn)}
	o := c.origin
	o.mu.Lock()
	subs, ok := o.channels[c.name]
	if !ok {
		subs = map[*subscriber]struct{}{}
		o.channels[c.name] = subs
	}
	subs[sub] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.channels[c.name], sub)
			o.mu.Unlock()
			sub.box.close()
		})
	}
}
