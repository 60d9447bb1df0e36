package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStatusChanged(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "payments-test" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "pay-local-1" {
			return errors.New("message must be keyed by local payment id")
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event PaymentStatusChangedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.EventType != EventTypePaymentStatusChanged || event.EventID == "" || event.Status != "paid" {
			return errors.New("event metadata not set")
		}
		return nil
	})

	publisher := NewPublisherWithProducer(producer, "payments-test")
	err := publisher.PublishStatusChanged(context.Background(), PaymentStatusChangedEvent{
		PaymentID: "pay-local-1",
		OrderID:   "order_1",
		Amount:    49999,
		Currency:  "INR",
		Status:    "paid",
		Source:    "webhook",
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Close())
}

func TestPublishStatusChangedFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewPublisherWithProducer(producer, "")
	err := publisher.PublishStatusChanged(context.Background(), PaymentStatusChangedEvent{PaymentID: "p1", Status: "failed"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Equal(t, TopicPaymentStatusChanged, publisher.topic)
	require.NoError(t, publisher.Close())
}
