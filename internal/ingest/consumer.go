// Folio - Personalized Article Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package ingest

import (
	"context"
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/metrics"
)

// Consumer drains interaction batches from the NATS event subject into
// the ingestion service. Messages carry a JSON array of IncomingEvent.
//
// Consumer implements suture.Service.
type Consumer struct {
	service    *Service
	subscriber message.Subscriber
	subject    string
	logger     zerolog.Logger
}

// NewConsumer connects a durable JetStream subscriber. The queue group
// load-balances across instances; the durable name survives restarts
// without redelivering the whole stream.
func NewConsumer(cfg config.NATSConfig, service *Service, logger zerolog.Logger) (*Consumer, error) {
	log := logger.With().Str("component", "nats-consumer").Logger()
	wmLogger := newWatermillLogger(log)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(5),
		natsgo.AckWait(30 * time.Second),
		natsgo.DeliverNew(),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    true,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	return &Consumer{
		service:    service,
		subscriber: sub,
		subject:    cfg.Subject,
		logger:     log,
	}, nil
}

// Serve consumes messages until the context is canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.subject)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.logger.Info().Str("subject", c.subject).Msg("consuming interaction events")

	for msg := range messages {
		c.handle(ctx, msg)
	}
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	metrics.NATSMessagesConsumed.Inc()

	batch, err := decodeBatch(msg.Payload)
	if err != nil {
		// Malformed payloads are acked: redelivery cannot fix them.
		metrics.NATSMessagesParseFailed.Inc()
		c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed event message")
		msg.Ack()
		return
	}

	if _, err := c.service.HandleBatch(ctx, batch, "nats"); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("event batch failed, nacking for redelivery")
		msg.Nack()
		return
	}
	msg.Ack()
}

// decodeBatch accepts either a JSON array of events or a single event
// object, publishers use both forms.
func decodeBatch(payload []byte) ([]IncomingEvent, error) {
	var batch []IncomingEvent
	if err := json.Unmarshal(payload, &batch); err == nil {
		return batch, nil
	}
	var single IncomingEvent
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return []IncomingEvent{single}, nil
}

// Close shuts the subscriber down.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
