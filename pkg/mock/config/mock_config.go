package config

import (
	"github.com/scoir/attestor/pkg/config"
	"github.com/scoir/attestor/pkg/framework"
)

type MockConfig struct {
	EndpointFunc      func(s string) (*framework.Endpoint, error)
	EndpointErr       error
	WithDataStoreFunc func() config.Config
	WithLedgerFunc    func() config.Config
	WithAMQPFunc      func() config.Config
	AMQPAddressValue  string
	AMQPConfigValue   *framework.AMQPConfig
	AMQPConfigErr     error
	DataStoreFunc     func() (*framework.DatastoreConfig, error)
	DataStoreErr      error
	LedgerValue       *framework.LedgerConfig
	LedgerErr         error
	CacheValue        *framework.CacheConfig
	CacheErr          error
	WebhooksValue     []*framework.Webhook
	WebhooksErr       error
	LogLevelValue     string
	Values            map[string]interface{}
}

func (m MockConfig) WithAMQP(_ ...config.Option) config.Config {
	if m.WithAMQPFunc != nil {
		return m.WithAMQPFunc()
	}

	return m
}

func (m MockConfig) AMQPAddress() string {
	return m.AMQPAddressValue
}

func (m MockConfig) AMQPConfig() (*framework.AMQPConfig, error) {
	if m.AMQPConfigErr != nil {
		return nil, m.AMQPConfigErr
	}

	return m.AMQPConfigValue, nil
}

func (m MockConfig) WithDatastore(_ ...config.Option) config.Config {
	if m.WithDataStoreFunc != nil {
		return m.WithDataStoreFunc()
	}

	return m
}

func (m MockConfig) DataStore() (*framework.DatastoreConfig, error) {
	if m.DataStoreFunc != nil {
		return m.DataStoreFunc()
	}

	if m.DataStoreErr != nil {
		return nil, m.DataStoreErr
	}

	return nil, nil
}

func (m MockConfig) WithLedger(_ ...config.Option) config.Config {
	if m.WithLedgerFunc != nil {
		return m.WithLedgerFunc()
	}

	return m
}

func (m MockConfig) Ledger() (*framework.LedgerConfig, error) {
	if m.LedgerErr != nil {
		return nil, m.LedgerErr
	}

	return m.LedgerValue, nil
}

func (m MockConfig) Cache() (*framework.CacheConfig, error) {
	if m.CacheErr != nil {
		return nil, m.CacheErr
	}

	if m.CacheValue == nil {
		return &framework.CacheConfig{
			TTL:       config.DefaultCacheTTL,
			Size:      config.DefaultCacheSize,
			Threshold: config.DefaultCacheThreshold,
		}, nil
	}

	return m.CacheValue, nil
}

func (m MockConfig) Webhooks() ([]*framework.Webhook, error) {
	if m.WebhooksErr != nil {
		return nil, m.WebhooksErr
	}

	return m.WebhooksValue, nil
}

func (m MockConfig) LogLevel() string {
	if m.LogLevelValue == "" {
		return config.DefaultLogLevel
	}

	return m.LogLevelValue
}

func (m MockConfig) GetString(s string) string {
	v, _ := m.Values[s].(string)
	return v
}

func (m MockConfig) GetInt(s string) int {
	v, _ := m.Values[s].(int)
	return v
}

func (m MockConfig) IsSet(s string) bool {
	_, ok := m.Values[s]
	return ok
}

func (m MockConfig) Endpoint(s string) (*framework.Endpoint, error) {
	if m.EndpointFunc != nil {
		return m.EndpointFunc(s)
	}

	if m.EndpointErr != nil {
		return nil, m.EndpointErr
	}

	return &framework.Endpoint{}, nil
}
