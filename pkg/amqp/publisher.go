package amqp

// QueueName is the queue evidence notifications are published to.
const QueueName = "attestor-evidence"

// Publisher writes evidence notifications to QueueName.
//go:generate mockery -name=Publisher
type Publisher interface {
	Publish(body []byte, contentType string) error
	Close() error
}
