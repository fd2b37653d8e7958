package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"reservation-service/internal/config"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaEventPublisher publishes stock events to the stock topic.
type KafkaEventPublisher struct {
	producer   sarama.SyncProducer
	topic      string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewKafkaEventPublisher connects a sync producer to the configured brokers.
func NewKafkaEventPublisher(cfg *config.Config, logger *zap.Logger) (*KafkaEventPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, ProducerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaEventPublisherWithProducer(producer, cfg.KafkaTopicStock, cfg.MaxRetries, cfg.RetryDelay, logger), nil
}

// NewKafkaEventPublisherWithProducer wraps an existing producer.
func NewKafkaEventPublisherWithProducer(producer sarama.SyncProducer, topic string, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *KafkaEventPublisher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &KafkaEventPublisher{
		producer:   producer,
		topic:      topic,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// ProducerConfig builds the sarama producer settings.
func ProducerConfig(cfg *config.Config) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = cfg.KafkaClientID
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = cfg.KafkaRetries
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	switch cfg.KafkaAcks {
	case "0":
		config.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		config.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		config.Producer.RequiredAcks = sarama.WaitForAll
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		// the idempotent producer requires acks=all
		config.Producer.Idempotent = false
	}
	return config
}

// Publish sends the event, retrying with exponential backoff.
func (p *KafkaEventPublisher) Publish(ctx context.Context, event interface{}) error {
	eventType := EventType(event)
	if eventType == "Unknown" {
		return fmt.Errorf("unknown event type: %T", event)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if key := partitionKey(event); key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		partition, offset, err := p.send(ctx, message)
		if err == nil {
			p.logger.Debug("Event published to Kafka",
				zap.String("topic", p.topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.String("event-type", eventType),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}
		p.logger.Warn("Failed to publish event to Kafka, retrying",
			zap.String("topic", p.topic),
			zap.String("event-type", eventType),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.maxRetries),
		)

		if attempt < p.maxRetries-1 {
			delay := p.baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to publish %s to Kafka after %d attempts", eventType, p.maxRetries)
}

// send bounds one SendMessage call by a timeout.
func (p *KafkaEventPublisher) send(ctx context.Context, message *sarama.ProducerMessage) (int32, int64, error) {
	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	type result struct {
		partition int32
		offset    int64
		err       error
	}
	done := make(chan result, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(message)
		done <- result{partition, offset, err}
	}()

	select {
	case r := <-done:
		return r.partition, r.offset, r.err
	case <-sendCtx.Done():
		return 0, 0, fmt.Errorf("timeout publishing event to Kafka: %w", sendCtx.Err())
	}
}

// Close closes the Kafka producer
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// partitionKey keeps one session's events, or one item's, in order.
func partitionKey(event interface{}) string {
	switch e := event.(type) {
	case StockReservedEvent:
		return e.SessionID
	case StockReleasedEvent:
		return e.SessionID
	case CatalogItemUpsertedEvent:
		return strconv.FormatInt(int64(e.ItemID), 10)
	case CatalogItemDeletedEvent:
		return strconv.FormatInt(int64(e.ItemID), 10)
	case AvailabilityChangedEvent:
		return "availability"
	}
	return ""
}
