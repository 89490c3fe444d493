/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package framework

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/datastore/mem"
	"github.com/scoir/attestor/pkg/datastore/mongodb"
	"github.com/scoir/attestor/pkg/datastore/postgres"
)

func TestDataStoreConfig(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		dsc := &DatastoreConfig{
			Database: "",
		}

		dp, err := dsc.StorageProvider()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no datastore configuration was provided")
		require.Nil(t, dp)
	})

	t.Run("mongo without config", func(t *testing.T) {
		dsc := &DatastoreConfig{Database: DatabaseMongo}

		dp, err := dsc.StorageProvider()
		require.Error(t, err)
		require.Contains(t, err.Error(), "config missing")
		require.Nil(t, dp)
	})

	t.Run("memory", func(t *testing.T) {
		dsc := &DatastoreConfig{Database: DatabaseMemory}

		dp, err := dsc.StorageProvider()
		require.NoError(t, err)
		require.IsType(t, &mem.Provider{}, dp)
	})
}

func TestDataStoreConfigName(t *testing.T) {
	tests := []struct {
		name string
		dsc  *DatastoreConfig
		want string
	}{
		{name: "memory", dsc: &DatastoreConfig{Database: DatabaseMemory}, want: "memory"},
		{
			name: "mongo",
			dsc:  &DatastoreConfig{Database: DatabaseMongo, Mongo: &mongodb.Config{URL: "mongodb://db:27017", Database: "attestor"}},
			want: "mongodb://db:27017/attestor",
		},
		{
			name: "postgres",
			dsc: &DatastoreConfig{Database: DatabasePostgres, Postgres: &postgres.Config{
				Host: "db", Port: 5432, User: "u", Password: "p", Database: "attestor",
			}},
			want: "postgres://u:p@db:5432/attestor?sslmode=disable",
		},
		{name: "mongo missing", dsc: &DatastoreConfig{Database: DatabaseMongo}, want: "mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.dsc.Name())
		})
	}
}
