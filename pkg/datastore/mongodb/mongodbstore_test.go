/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
)

const (
	mongoStoreDBURL = "mongodb://localhost:27017"
)

// For these unit tests to run, you must ensure you have a Mongo DB instance running at the URL specified in
// mongoStoreDBURL.
// To run the tests manually, start an instance by running the following command in the terminal
// docker run -p 27017:27017 --name MongoStoreTest -d mongo:4.2.8
// delete using
//   docker kill MongoStoreTest
//   docker rm MongoStoreTest
func TestMain(m *testing.M) {
	err := waitForMongoDBToStart()
	if err != nil {
		fmt.Printf(err.Error() +
			". Make sure you start a mongo instance using" +
			" 'docker run -p 27017:27017 mongo:4.2.8' before running the unit tests")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

func waitForMongoDBToStart() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoStoreDBURL))
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return client.Ping(ctx, nil)
}

func TestMongoDBStore(t *testing.T) {
	prov, err := NewProvider(&Config{URL: mongoStoreDBURL, Database: "attestor_test"})
	require.NoError(t, err)
	defer func() { _ = prov.Close() }()

	store, err := prov.OpenStore("schema_" + uuid.New().String()[:8])
	require.NoError(t, err)

	s := &datastore.Schema{
		CptID:   101,
		Name:    "degree",
		Version: "1.0",
		Attributes: []*datastore.Attribute{
			{Name: "name"},
			{Name: "school", Attributes: []*datastore.Attribute{{Name: "city"}}},
		},
	}

	t.Run("insert and get", func(t *testing.T) {
		id, err := store.InsertSchema(s)
		require.NoError(t, err)
		require.Equal(t, 101, id)

		got, err := store.GetSchema(101)
		require.NoError(t, err)
		require.Equal(t, s, got)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := store.InsertSchema(s)
		require.True(t, errcode.Is(err, errcode.ErrInputIllegal))
	})

	t.Run("list", func(t *testing.T) {
		list, err := store.ListSchema(&datastore.SchemaCriteria{PageSize: 10, Name: "deg"})
		require.NoError(t, err)
		require.Equal(t, 1, list.Count)
		require.Len(t, list.Schema, 1)
	})

	t.Run("update", func(t *testing.T) {
		s.Version = "1.1"
		require.NoError(t, store.UpdateSchema(s))

		got, err := store.GetSchema(101)
		require.NoError(t, err)
		require.Equal(t, "1.1", got.Version)

		err = store.UpdateSchema(&datastore.Schema{CptID: 999, Name: "x", Attributes: s.Attributes})
		require.True(t, errcode.Is(err, errcode.ErrSchemaNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteSchema(101))

		_, err := store.GetSchema(101)
		require.True(t, errcode.Is(err, errcode.ErrSchemaNotFound))
	})
}
