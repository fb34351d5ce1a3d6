package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Sink receives drained audit entries. Implemented by KafkaSink in
// production; tests use a capturing fake.
type Sink interface {
	Publish(ctx context.Context, entries []Entry) error
	Close()
}

// KafkaSink publishes audit events to a Kafka topic keyed by subject so all
// events for one entity land in one partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, entries []Entry) error {
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		body, err := json.Marshal(payload{
			Category:  string(e.Event.Action.Category()),
			Timestamp: e.Event.Timestamp.Format(time.RFC3339Nano),
			Action:    string(e.Event.Action),
			ActorID:   e.Event.ActorID,
			Subject:   e.Event.Subject,
			RegionID:  e.Event.RegionID,
			Decision:  e.Event.Decision,
			Reason:    e.Event.Reason,
			RequestID: e.Event.RequestID,
			Device:    e.Event.Device,
		})
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(e.Event.Subject),
			Value: body,
		})
	}
	if err := s.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
