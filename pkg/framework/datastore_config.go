/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/datastore/mem"
	"github.com/scoir/attestor/pkg/datastore/mongodb"
	"github.com/scoir/attestor/pkg/datastore/postgres"
)

const (
	DatabaseMongo    = "mongo"
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

type DatastoreConfig struct {
	Database string           `mapstructure:"database"`
	Mongo    *mongodb.Config  `mapstructure:"mongo"`
	Postgres *postgres.Config `mapstructure:"postgres"`
}

// Name identifies the configured database instance.
func (r *DatastoreConfig) Name() string {
	switch r.Database {
	case DatabaseMongo:
		if r.Mongo != nil {
			return r.Mongo.URL + "/" + r.Mongo.Database
		}
	case DatabasePostgres:
		if r.Postgres != nil {
			return r.Postgres.String()
		}
	}

	return r.Database
}

func (r *DatastoreConfig) StorageProvider() (datastore.Provider, error) {
	var dp datastore.Provider
	var err error

	switch r.Database {
	case DatabaseMongo:
		dp, err = mongodb.NewProvider(r.Mongo)
	case DatabasePostgres:
		dp, err = postgres.NewProvider(r.Postgres)
	case DatabaseMemory:
		dp = mem.NewProvider()
	default:
		return nil, errors.New("no datastore configuration was provided")
	}

	if err != nil {
		return nil, errors.Wrap(err, "unable to create datastore based on config")
	}

	return dp, nil
}
