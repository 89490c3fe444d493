/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package datastore is the persistent claim schema registry.
package datastore

const (
	SchemaC = "Schema"
)

// Provider storage provider interface
type Provider interface {
	// OpenStore opens a store with given name space and returns the handle
	OpenStore(name string) (Store, error)

	// CloseStore closes store of given name space
	CloseStore(name string) error

	// Close closes all stores created under this store provider
	Close() error
}

//go:generate mockery -name=Store
type Store interface {
	InsertSchema(s *Schema) (int, error)
	ListSchema(c *SchemaCriteria) (*SchemaList, error)
	GetSchema(cptID int) (*Schema, error)
	DeleteSchema(cptID int) error
	UpdateSchema(s *Schema) error
}
