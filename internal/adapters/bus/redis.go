// Package bus implements the cast/call messaging transport over Redis
// pub/sub. Casts are fire-and-forget publishes; calls publish with a
// private reply channel and block until a correlated reply or timeout.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

const (
	envelopeVersion = 1
	topicPrefix     = "zoneplane:topic:"
	replyPrefix     = "zoneplane:reply:"
)

// Envelope is the wire frame shared by casts, calls and replies.
type Envelope struct {
	Version     int             `json:"version"`
	Method      string          `json:"method"`
	ReplyTo     string          `json:"reply_to,omitempty"`
	Correlation string          `json:"correlation,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// Handler processes one inbound message and optionally returns a reply
// payload. A nil reply with nil error acknowledges a cast.
type Handler func(ctx context.Context, payload json.RawMessage) (reply any, err error)

// RedisBus is the Bus implementation backed by Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBus wires a bus over an existing Redis client.
func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, logger: logger}
}

// Cast publishes a fire-and-forget message to the topic. Delivery is at
// most once: the flag columns on the zone row are the recovery mechanism
// when a cast is dropped.
func (b *RedisBus) Cast(ctx context.Context, topic, method string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}
	env := Envelope{Version: envelopeVersion, Method: method, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	metrics.BusMessages.WithLabelValues(topic, method, "cast").Inc()
	return b.client.Publish(ctx, topicPrefix+topic, data).Err()
}

// Call publishes a request carrying a private reply channel and blocks
// until the correlated reply arrives or the timeout elapses.
func (b *RedisBus) Call(ctx context.Context, topic, method string, payload any, reply any, timeout time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}
	correlation := uuid.New().String()
	replyChannel := replyPrefix + correlation

	sub := b.client.Subscribe(ctx, replyChannel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("failed to close reply subscription", "channel", replyChannel, "error", err)
		}
	}()
	// Wait for the subscription to be confirmed before publishing, or the
	// reply can race past us.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	env := Envelope{
		Version:     envelopeVersion,
		Method:      method,
		ReplyTo:     replyChannel,
		Correlation: correlation,
		Payload:     raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	metrics.BusMessages.WithLabelValues(topic, method, "call").Inc()
	if err := b.client.Publish(ctx, topicPrefix+topic, data).Err(); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%s on %s: %w", method, topic, domain.ErrCallTimeout)
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("%s on %s: %w", method, topic, domain.ErrCallTimeout)
			}
			var replyEnv Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &replyEnv); err != nil {
				b.logger.Warn("discarding malformed reply", "channel", replyChannel, "error", err)
				continue
			}
			if replyEnv.Correlation != correlation {
				continue
			}
			if reply == nil {
				return nil
			}
			return json.Unmarshal(replyEnv.Payload, reply)
		}
	}
}

// Serve subscribes to the topic and dispatches inbound envelopes to the
// registered handlers until the context is cancelled. Unknown methods
// are logged and dropped; handler errors never kill the loop.
func (b *RedisBus) Serve(ctx context.Context, topic string, handlers map[string]Handler) error {
	sub := b.client.Subscribe(ctx, topicPrefix+topic)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("failed to close topic subscription", "topic", topic, "error", err)
		}
	}()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("consuming bus topic", "topic", topic)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, topic, msg.Payload, handlers)
		}
	}
}

func (b *RedisBus) dispatch(ctx context.Context, topic, raw string, handlers map[string]Handler) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Warn("discarding malformed bus message", "topic", topic, "error", err)
		return
	}
	handler, ok := handlers[env.Method]
	if !ok {
		b.logger.Warn("no handler for bus method", "topic", topic, "method", env.Method)
		return
	}
	metrics.BusMessages.WithLabelValues(topic, env.Method, "recv").Inc()

	reply, err := handler(ctx, env.Payload)
	if err != nil {
		b.logger.Error("bus handler failed", "topic", topic, "method", env.Method, "error", err)
		return
	}
	if env.ReplyTo == "" {
		return
	}
	rawReply, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error("failed to encode bus reply", "method", env.Method, "error", err)
		return
	}
	replyEnv := Envelope{Version: envelopeVersion, Method: env.Method, Correlation: env.Correlation, Payload: rawReply}
	data, err := json.Marshal(replyEnv)
	if err != nil {
		b.logger.Error("failed to encode reply envelope", "method", env.Method, "error", err)
		return
	}
	if err := b.client.Publish(ctx, env.ReplyTo, data).Err(); err != nil {
		b.logger.Error("failed to publish bus reply", "method", env.Method, "error", err)
	}
}
