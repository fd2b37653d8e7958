package kafka

import (
	"context"
	"fmt"
	"time"

	"reservation-service/internal/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// EventProcessor applies one decoded event.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, eventType string, eventData []byte) error
}

// Consumer feeds catalog events from Kafka into the ledger.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *consumerGroupHandler
	logger        *zap.Logger
	topics        []string
	groupID       string
}

// NewConsumer creates a consumer group on the catalog topic.
func NewConsumer(cfg *config.Config, processor EventProcessor, logger *zap.Logger) (*Consumer, error) {
	logger.Info("Creating Kafka consumer",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
		zap.String("topic", cfg.KafkaTopicCatalog),
	)

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, ConsumerConfig(cfg))
	if err != nil {
		logger.Error("Failed to create Kafka consumer group",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       newConsumerGroupHandler(processor, cfg.MaxRetries, cfg.RetryDelay, logger),
		logger:        logger,
		topics:        []string{cfg.KafkaTopicCatalog},
		groupID:       cfg.KafkaGroupID,
	}, nil
}

// ConsumerConfig builds the sarama settings for the catalog consumer. Catalog
// replay starts from the oldest offset so a fresh group sees every item.
func ConsumerConfig(cfg *config.Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	return saramaConfig
}

// Start consumes until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.groupID),
	)

	for {
		// Consume returns on every rebalance and must be called again.
		if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			return fmt.Errorf("consume %v: %w", c.topics, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the group.
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type consumerGroupHandler struct {
	processor  EventProcessor
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func newConsumerGroupHandler(processor EventProcessor, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *consumerGroupHandler {
	return &consumerGroupHandler{
		processor:  processor,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages()
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			h.handleMessage(session.Context(), message)
			// Failed messages are marked too; a poison message must not stall the partition.
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	eventType := extractEventType(message.Headers)
	if eventType == "" {
		h.logger.Warn("Message without event type, skipping",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return
	}

	if err := h.processWithRetry(ctx, eventType, message.Value); err != nil {
		h.logger.Error("Failed to process event",
			zap.String("event_type", eventType),
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Bool("permanent", IsPermanent(err)),
			zap.Error(err),
		)
	}
}

// processWithRetry retries transient failures with a linear backoff.
func (h *consumerGroupHandler) processWithRetry(ctx context.Context, eventType string, eventData []byte) error {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := h.retryDelay * time.Duration(attempt)
			h.logger.Info("Retrying event processing",
				zap.String("event_type", eventType),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := h.processor.ProcessEvent(ctx, eventType, eventData)
		if err == nil {
			if attempt > 0 {
				h.logger.Info("Event processed successfully after retry",
					zap.String("event_type", eventType),
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}
		if IsPermanent(err) {
			return err
		}

		lastErr = err
		h.logger.Warn("Event processing failed",
			zap.String("event_type", eventType),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return fmt.Errorf("failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

func extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == "event-type" {
			return string(header.Value)
		}
	}
	return ""
}
