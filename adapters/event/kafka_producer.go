package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/devconnector/internal/application/service"
	"github.com/khoahotran/devconnector/internal/config"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const TopicProfileEvents = "profile.events"

type KafkaProducerClient struct {
	ProfileEventsWriter *kafka.Writer
	logger              logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'profile.events', keyed by user so one user's events stay ordered
	profileWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    TopicProfileEvents,
		Balancer: &kafka.Hash{},
	}

	log.Info("Initialize Kafka Producers successfully.")

	return &KafkaProducerClient{
		ProfileEventsWriter: profileWriter,
		logger:              log,
	}, nil
}

func profileEventMessage(evt service.ProfileEvent) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal profile event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.UserID.String()),
		Value: payload,
		Time:  evt.OccurredAt,
	}, nil
}

// DecodeProfileEvent parses a message written by PublishProfileEvent.
func DecodeProfileEvent(msg kafka.Message) (service.ProfileEvent, error) {
	var evt service.ProfileEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return service.ProfileEvent{}, fmt.Errorf("failed to unmarshal profile event: %w", err)
	}
	return evt, nil
}

func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, evt service.ProfileEvent) error {
	msg, err := profileEventMessage(evt)
	if err != nil {
		return err
	}
	if err := c.ProfileEventsWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write profile event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ProfileEventsWriter != nil {
		if err := c.ProfileEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close profile events writer", err)
		}
	}
	c.logger.Info("Closed Kafka Producers")
}
