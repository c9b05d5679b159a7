// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package eventbridge

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/medibook/internal/config"
)

const subscriberCloseTimeout = 10 * time.Second

// NewNATSSubscriber creates a core NATS queue subscriber for cfg.Subject.
// Appointment notifications are not replayed after a restart, so
// JetStream is not used: an event missed while no instance runs has no
// connected recipients to notify anyway.
func NewNATSSubscriber(cfg config.EventsConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("medibook-eventbridge"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Event subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Event subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		CloseTimeout:     subscriberCloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return sub, nil
}
