/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"fmt"
	"time"
)

type Endpoint struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

func (r Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AMQPConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	VHost    string `mapstructure:"vhost"`
}

func (r *AMQPConfig) Endpoint() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

// LedgerConfig locates the ledger node and the contracts attestor talks to.  With Memory set
// the process hosts its own in-memory ledger and URL is ignored.
type LedgerConfig struct {
	URL              string        `mapstructure:"url"`
	Memory           bool          `mapstructure:"memory"`
	EvidenceContract string        `mapstructure:"evidenceContract"`
	RegistryContract string        `mapstructure:"registryContract"`
	ChainID          int           `mapstructure:"chainId"`
	Method           string        `mapstructure:"method"`
	Timeout          time.Duration `mapstructure:"timeout"`
	PrivateKey       string        `mapstructure:"privateKey"`
}

// CacheConfig sizes the receipt cache.  Only blocks with more than Threshold receipts are
// cached.
type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	Size      int           `mapstructure:"size"`
	Threshold int           `mapstructure:"threshold"`
}

// Webhook receives the evidence notifications of Topic, or of every type when Topic is empty
// or "*".
type Webhook struct {
	Topic string `mapstructure:"topic"`
	URL   string `mapstructure:"url"`
}
