package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/framework"
)

const (
	defaultAMQP      = "attestor-amqp-config"
	defaultDataStore = "attestor-data-store-config"
	defaultLedger    = "attestor-ledger-config"

	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheSize      = 1000
	DefaultCacheThreshold = 1
	DefaultLedgerTimeout  = 10 * time.Second
	DefaultLogLevel       = "INFO"
)

var logger = log.New("attestor/config")

// Option configures the config...
type Option func(opts *vpr)

// WithFile merges file instead of the default file of a section.
func WithFile(file string) Option {
	return func(opts *vpr) {
		opts.file = file
	}
}

type ViperConfigProvider struct {
	DefaultConfigName string
}

type vpr struct {
	*viper.Viper
	file string
}

func (r *ViperConfigProvider) Load(file string) Config {
	config := &vpr{
		viper.New(),
		"", // really don't like this
	}

	if file != "" {
		config.SetConfigFile(file)
	} else {
		config.SetConfigType("yaml")
		config.AddConfigPath("/etc/attestor/")
		config.AddConfigPath("./deploy/compose/")
		config.SetConfigName(r.DefaultConfigName)
	}

	config.SetEnvPrefix("ATTESTOR")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	err := config.BindPFlags(pflag.CommandLine)
	if err != nil {
		logger.Fatalf("failed to bind flags: %v", err)
	}

	err = config.ReadInConfig()
	if err != nil {
		logger.Fatalf("failed to read config %s: %v", config.ConfigFileUsed(), err)
	}

	return config
}

func (r *vpr) WithDatastore(opts ...Option) Config {
	return r.with(defaultDataStore, opts)
}

func (r *vpr) WithLedger(opts ...Option) Config {
	return r.with(defaultLedger, opts)
}

func (r *vpr) WithAMQP(opts ...Option) Config {
	return r.with(defaultAMQP, opts)
}

func (r *vpr) with(defawlt string, opts []Option) Config {
	r.file = ""
	for _, opt := range opts {
		opt(r)
	}

	if r.file != "" {
		return r.withFile(r.SetConfigFile, r.file)
	}

	return r.withFile(r.SetConfigName, defawlt)
}

func (r *vpr) withFile(setter func(name string), file string) Config {
	setter(file)

	err := r.MergeInConfig()
	if err != nil {
		logger.Fatalf("failed to merge %s: %v", r.ConfigFileUsed(), err)
	}

	return r
}

func (r *vpr) AMQPAddress() string {
	amqpUser := r.GetString("amqp.user")
	amqpPwd := r.GetString("amqp.password")
	amqpHost := r.GetString("amqp.host")
	amqpPort := r.GetInt("amqp.port")
	amqpVHost := r.GetString("amqp.vhost")

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", amqpUser, amqpPwd, amqpHost, amqpPort, amqpVHost)
}

func (r *vpr) AMQPConfig() (*framework.AMQPConfig, error) {
	config := &framework.AMQPConfig{}

	err := r.UnmarshalKey("amqp", config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (r *vpr) DataStore() (*framework.DatastoreConfig, error) {
	dc := &framework.DatastoreConfig{}

	err := r.UnmarshalKey("datastore", dc)
	if err != nil {
		return nil, err
	}

	return dc, nil
}

func (r *vpr) Ledger() (*framework.LedgerConfig, error) {
	lc := &framework.LedgerConfig{}

	err := r.UnmarshalKey("ledger", lc)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ledger configuration")
	}

	if lc.Method == "" {
		lc.Method = did.DefaultMethod
	}
	if lc.Timeout <= 0 {
		lc.Timeout = DefaultLedgerTimeout
	}
	if !lc.Memory && lc.URL == "" {
		return nil, errors.New("ledger url is required unless the memory ledger is enabled")
	}

	return lc, nil
}

func (r *vpr) Cache() (*framework.CacheConfig, error) {
	cc := &framework.CacheConfig{}

	err := r.UnmarshalKey("cache", cc)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cache configuration")
	}

	if cc.TTL <= 0 {
		cc.TTL = DefaultCacheTTL
	}
	if cc.Size <= 0 {
		cc.Size = DefaultCacheSize
	}
	if cc.Threshold <= 0 {
		cc.Threshold = DefaultCacheThreshold
	}

	return cc, nil
}

func (r *vpr) Webhooks() ([]*framework.Webhook, error) {
	var hooks []*framework.Webhook

	err := r.UnmarshalKey("notifier.webhooks", &hooks)
	if err != nil {
		return nil, errors.Wrap(err, "invalid webhook configuration")
	}

	return hooks, nil
}

func (r *vpr) LogLevel() string {
	if l := r.GetString("log.level"); l != "" {
		return l
	}

	return DefaultLogLevel
}

// GetString uses Get because recursion
func (r *vpr) GetString(s string) string {
	ret, _ := r.Get(s).(string)

	return ret
}

// GetString uses Get because same recursion
func (r *vpr) GetInt(s string) int {
	ret, _ := r.Get(s).(int)

	return ret
}

func (r *vpr) Endpoint(key string) (*framework.Endpoint, error) {
	ep := &framework.Endpoint{}

	err := r.UnmarshalKey(key, ep)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load key "+key)
	}

	return ep, nil
}
