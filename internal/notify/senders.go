package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"

	"github.com/tendant/bucket-thumbnailer/internal/bus"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender sends to the queue URL given as address.
type SQSSender struct {
	client sqsAPI
}

func NewSQSSender(client sqsAPI) *SQSSender {
	return &SQSSender{client: client}
}

func NewSQSSenderFromConfig(cfg aws.Config) *SQSSender {
	return NewSQSSender(sqs.NewFromConfig(cfg))
}

func (s *SQSSender) Send(ctx context.Context, queueURL string, body []byte, _ string) (string, error) {
	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

// NATSSender publishes to the subject given as address.
type NATSSender struct {
	client *bus.Client
}

func NewNATSSender(client *bus.Client) *NATSSender {
	return &NATSSender{client: client}
}

func (s *NATSSender) Send(_ context.Context, subject string, body []byte, id string) (string, error) {
	if err := s.client.PublishWithID(subject, body, id); err != nil {
		return "", err
	}
	return id, nil
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender writes to the topic given as address, keyed by message id.
type KafkaSender struct {
	w kafkaWriter
}

func NewKafkaSender(brokers []string) *KafkaSender {
	return &KafkaSender{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (s *KafkaSender) Send(ctx context.Context, topic string, body []byte, id string) (string, error) {
	err := s.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(id),
		Value: body,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *KafkaSender) Close() error { return s.w.Close() }
