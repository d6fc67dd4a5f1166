package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Topics published by this process. Subscribers must tolerate missing
// deliveries: the bus promises "eventually delivered to current subscribers",
// nothing more.
const (
	TopicPlacesChanged        = "places.changed"
	TopicLocationUpdated      = "location.updated"
	TopicAuthorizationChanged = "authorization.changed"
)

// PlacesChanged notifies that the place set was mutated
type PlacesChanged struct {
	Reason   string   `json:"reason"` // create, update, delete, merge
	PlaceIDs []string `json:"placeIds,omitempty"`
}

// LocationUpdated notifies that a new fix passed the sampler
type LocationUpdated struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Time      int64   `json:"time"`
}

// AuthorizationChanged notifies that the positioning permission state moved
type AuthorizationChanged struct {
	Status string `json:"status"`
}

// Bus is the in-process notification bus decoupling the tracker and merge
// pass from UI-facing collaborators
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// NewBus creates a bus with buffered output channels so publishers never
// block on slow subscribers
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, newZapLoggerAdapter(logger)),
		logger: logger.Named("events"),
	}
}

// Publish marshals the payload and publishes it on the topic. Fire and
// forget: failures are logged, never propagated to the caller.
func (b *Bus) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal event payload",
			zap.String("topic", topic), zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		b.logger.Error("failed to publish event",
			zap.String("topic", topic), zap.Error(err))
	}
}

// Subscribe returns a channel of raw messages for the topic. The
// subscription ends when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// Decode unmarshals a message payload into v
func Decode(msg *message.Message, v interface{}) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}
	return nil
}

// Close shuts the bus down, closing all subscriber channels
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// zapLoggerAdapter bridges watermill's logging interface onto zap
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func newZapLoggerAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	return &zapLoggerAdapter{logger: logger.Named("watermill")}
}

func (a *zapLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *zapLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapLoggerAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
