/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

const appID = "attestor"

// Publisher sends persistent messages to a single durable queue.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	now   func() time.Time
}

func NewPublisher(addr, queue string, opts ...Option) (*Publisher, error) {
	conn, ch, err := dial(addr, queue, opts)
	if err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue, now: time.Now}, nil
}

// Publish stamps body with a fresh message id.  amqp channels are not safe for
// concurrent publishing, so calls are serialized.
func (r *Publisher) Publish(body []byte, contentType string) error {
	msg := amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		AppId:        appID,
		Timestamp:    r.now().UTC(),
		Body:         body,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ch.Publish("", r.queue, false, false, msg); err != nil {
		return errors.Wrapf(err, "publish to %s failed", r.queue)
	}

	return nil
}

func (r *Publisher) Close() error {
	return r.conn.Close()
}
