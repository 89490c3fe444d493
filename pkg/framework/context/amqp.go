/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/amqp"
	"github.com/scoir/attestor/pkg/amqp/rabbitmq"
	"github.com/scoir/attestor/pkg/framework"
)

const amqpKey = "amqp"

func (r *Provider) GetAMQPListener(queue string) (amqp.Listener, error) {
	if !r.conf.IsSet(amqpKey) {
		return nil, errors.New("amqp is not configured")
	}

	l, err := rabbitmq.NewListener(r.conf.AMQPAddress(), queue)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// getPublisher returns nil when amqp is not configured or the broker cannot be reached.
func (r *Provider) getPublisher() amqp.Publisher {
	if r.publisher != nil {
		return r.publisher
	}

	if !r.conf.IsSet(amqpKey) {
		return nil
	}

	p, err := rabbitmq.NewPublisher(r.conf.AMQPAddress(), amqp.QueueName)
	if err != nil {
		logger.Warnf("evidence notifications disabled: %v", err)
		return nil
	}

	r.publisher = p
	return r.publisher
}

func (r *Provider) Webhooks() []*framework.Webhook {
	hooks, err := r.conf.Webhooks()
	if err != nil {
		logger.Errorf("invalid webhook configuration: %v", err)
		return nil
	}

	return hooks
}
