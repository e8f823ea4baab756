package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

// KafkaNotifier publishes e-mail notifications for the mailer service,
// keyed by recipient so one recipient's mails stay ordered.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(cfg *config.KafkaConfig) (*KafkaNotifier, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, cfg.EmailTopic), nil
}

func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg model.Notification) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(msg.To),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	logger.Debug(ctx, "notification published",
		"template", msg.Template,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

// LogNotifier only logs notifications. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg model.Notification) error {
	logger.Info(ctx, "notification",
		"to", msg.To,
		"template", msg.Template,
		"order_number", msg.OrderNumber,
	)
	return nil
}
