package config

import "github.com/scoir/attestor/pkg/framework"

// Provider rename to ConfigBuilder
type Provider interface {
	Load(file string) Config
}

// Config is the typed view over the attestor configuration file and environment.
type Config interface {
	WithAMQP(opts ...Option) Config
	AMQPAddress() string
	AMQPConfig() (*framework.AMQPConfig, error)

	WithDatastore(opts ...Option) Config
	DataStore() (*framework.DatastoreConfig, error)

	WithLedger(opts ...Option) Config
	Ledger() (*framework.LedgerConfig, error)

	Cache() (*framework.CacheConfig, error)
	Webhooks() ([]*framework.Webhook, error)
	LogLevel() string

	GetString(s string) string
	GetInt(s string) int
	IsSet(s string) bool

	Endpoint(s string) (*framework.Endpoint, error)
}
