package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/kameel77/auto-scraper/pkg/models"
	"github.com/rs/zerolog/log"
)

// KafkaSink publishes every record as a JSON message keyed by
// "source:listing_id", so all snapshots of one vehicle land on one partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaSink connects a synchronous producer to brokers
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, topic), nil
}

// NewKafkaSinkWithProducer wraps an existing producer
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

// Save publishes o and waits for the broker acknowledgement
func (k *KafkaSink) Save(ctx context.Context, o *models.Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := k.message(o)
	if err != nil {
		return err
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", o.ListingID, err)
	}
	log.Debug().
		Str("topic", k.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Str("listing_id", o.ListingID).
		Msg("Record published")
	return nil
}

func (k *KafkaSink) message(o *models.Offer) (*sarama.ProducerMessage, error) {
	value, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(MessageKey(o)),
		Value: sarama.ByteEncoder(value),
	}, nil
}

// MessageKey is the partitioning key of a record
func MessageKey(o *models.Offer) string {
	return string(o.Source) + ":" + o.ListingID
}

// Close flushes and closes the producer
func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
