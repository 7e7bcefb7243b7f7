// internal/bus/nats.go
package bus

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
)

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// PublishWithID publishes data with a Nats-Msg-Id header so JetStream
// subjects can drop duplicates.
func (c *Client) PublishWithID(subject string, data []byte, id string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}
	return c.nc.PublishMsg(msg)
}

// QueueSubscribe delivers each message to one member of queue. Every handler
// call gets a fresh context bounded by timeout; zero means no bound.
func (c *Client) QueueSubscribe(subject, queue string, timeout time.Duration, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		handler(ctx, msg.Data)
	})
}
