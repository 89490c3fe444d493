package amqp

import (
	"github.com/streadway/amqp"
)

// Listener delivers messages from one queue until closed.
//go:generate mockery -name=Listener
type Listener interface {
	Listen() (<-chan amqp.Delivery, error)
	Close() error
}
