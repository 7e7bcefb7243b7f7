package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tendant/bucket-thumbnailer/pkg/schema"
)

var ErrNoSender = errors.New("no sender registered for transport")

// Sender delivers an encoded payload to one address of its transport. id is a
// client-side identifier the sender may use for deduplication; the returned
// message id is the broker's when it assigns one.
type Sender interface {
	Send(ctx context.Context, address string, body []byte, id string) (string, error)
}

// Publisher encodes completion messages per route and hands them to the
// sender of the route's transport.
type Publisher struct {
	senders  map[Transport]Sender
	taskName string
	newID    func() string
}

func NewPublisher(taskName string) *Publisher {
	if taskName == "" {
		taskName = DefaultTaskName
	}
	return &Publisher{
		senders:  make(map[Transport]Sender),
		taskName: taskName,
		newID:    func() string { return uuid.NewString() },
	}
}

// Register sets the sender used for t.
func (p *Publisher) Register(t Transport, s Sender) *Publisher {
	p.senders[t] = s
	return p
}

// Publish sends msg to route and returns the message id.
func (p *Publisher) Publish(ctx context.Context, route Route, msg schema.ThumbnailMessage) (string, error) {
	sender, ok := p.senders[route.Transport]
	if !ok {
		return "", fmt.Errorf("route %s: %w: %s", route.Name, ErrNoSender, route.Transport)
	}

	id := p.newID()
	body, err := p.encode(route, msg, id)
	if err != nil {
		return "", fmt.Errorf("route %s: %w", route.Name, err)
	}

	messageID, err := sender.Send(ctx, route.Address, body, id)
	if err != nil {
		return "", fmt.Errorf("send to %s %s: %w", route.Transport, route.Address, err)
	}
	if messageID == "" {
		messageID = id
	}
	return messageID, nil
}

func (p *Publisher) encode(route Route, msg schema.ThumbnailMessage, id string) ([]byte, error) {
	switch route.Format {
	case FormatFlat:
		return EncodeFlat(msg)
	case FormatTask:
		return EncodeTask(msg, p.taskName, route.Name, id)
	default:
		return nil, fmt.Errorf("unknown format %q", route.Format)
	}
}
