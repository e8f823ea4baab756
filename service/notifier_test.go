package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
)

func TestKafkaNotifierPublishes(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "notifications.email" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "renter@example.com" {
			return errors.New("unexpected key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var n model.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		if n.OrderNumber != "000000042" || n.Template != model.TemplateContractSigned {
			return errors.New("unexpected payload " + string(raw))
		}
		return nil
	})

	notifier := NewKafkaNotifierWithProducer(producer, "notifications.email")
	err := notifier.Notify(context.Background(), model.Notification{
		To:          "renter@example.com",
		OrderNumber: "000000042",
		Template:    model.TemplateContractSigned,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := notifier.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
}

func TestKafkaNotifierSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	notifier := NewKafkaNotifierWithProducer(producer, "notifications.email")
	err := notifier.Notify(context.Background(), model.Notification{To: "owner@example.com"})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("Expected ErrOutOfBrokers, got %v", err)
	}
	producer.Close()
}

func TestLogNotifier(t *testing.T) {
	if err := (LogNotifier{}).Notify(context.Background(), model.Notification{To: "owner@example.com"}); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
