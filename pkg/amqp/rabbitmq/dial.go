/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rabbitmq

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/scoir/attestor/pkg/util"
)

type dialOptions struct {
	retries uint64
	maxWait time.Duration
}

type Option func(opts *dialOptions)

// WithRetries sets how many times a failed dial is retried.  Zero dials once.
func WithRetries(n uint64) Option {
	return func(opts *dialOptions) {
		opts.retries = n
	}
}

// WithMaxElapsedTime bounds the total time spent retrying.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(opts *dialOptions) {
		opts.maxWait = d
	}
}

// dial connects to addr and opens a channel with queue declared on it.
func dial(addr, queue string, opts []Option) (*amqp.Connection, *amqp.Channel, error) {
	o := &dialOptions{retries: 5, maxWait: time.Minute}
	for _, opt := range opts {
		opt(o)
	}

	var conn *amqp.Connection
	connect := func() error {
		var err error
		conn, err = amqp.Dial(addr)
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = o.maxWait
	err := backoff.RetryNotify(connect, backoff.WithMaxRetries(eb, o.retries), util.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to connect to RabbitMQ at %s", addr)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "unable to create an AMQP channel")
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "unable to declare AMQP queue")
	}

	return conn, ch, nil
}
