/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

const prefetch = 16

// Listener consumes a durable queue with auto acknowledgement.
type Listener struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	tag   string
}

func NewListener(addr, queue string, opts ...Option) (*Listener, error) {
	conn, ch, err := dial(addr, queue, opts)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "unable to set prefetch")
	}

	return &Listener{conn: conn, ch: ch, queue: queue, tag: appID + "-" + uuid.New().String()}, nil
}

func (r *Listener) Listen() (<-chan amqp.Delivery, error) {
	msgs, err := r.ch.Consume(r.queue, r.tag, true, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to consume %s", r.queue)
	}

	return msgs, nil
}

// Close cancels the consumer before dropping the connection so the delivery
// channel is closed cleanly.
func (r *Listener) Close() error {
	if err := r.ch.Cancel(r.tag, false); err != nil {
		_ = r.conn.Close()
		return errors.Wrap(err, "unable to cancel consumer")
	}

	return r.conn.Close()
}
