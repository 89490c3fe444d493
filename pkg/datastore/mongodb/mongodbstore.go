/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongodb

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
)

const duplicateKeyCode = 11000

type Config struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// Provider represents a Mongo DB implementation of the datastore.Provider interface
type Provider struct {
	db     *mongo.Database
	stores map[string]*mongoDBStore
	sync.RWMutex
}

type mongoDBStore struct {
	collection *mongo.Collection
}

// NewProvider instantiates Provider
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("config missing")
	}

	tM := reflect.TypeOf(bson.M{})
	reg := bson.NewRegistryBuilder().RegisterTypeMapEntry(bsontype.EmbeddedDocument, tM).Build()
	clientOpts := options.Client().SetRegistry(reg).ApplyURI(config.URL)

	mongoClient, err := mongo.NewClient(clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "error creating mongo client")
	}

	err = mongoClient.Connect(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mongo")
	}

	return &Provider{
		db:     mongoClient.Database(config.Database),
		stores: map[string]*mongoDBStore{},
	}, nil
}

// OpenStore opens and returns the collection for given name space.  The cptid index is created
// on first open.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	if store, ok := p.stores[name]; ok {
		return store, nil
	}

	store := &mongoDBStore{
		collection: p.db.Collection(name),
	}

	_, err := store.collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.M{"cptid": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to index %s", name)
	}

	p.stores[name] = store

	return store, nil
}

// Close closes the provider.
func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.stores = make(map[string]*mongoDBStore)

	return p.db.Client().Disconnect(context.Background())
}

// CloseStore closes a previously opened store
func (p *Provider) CloseStore(name string) error {
	p.Lock()
	defer p.Unlock()

	delete(p.stores, name)

	return nil
}

func (r *mongoDBStore) InsertSchema(s *datastore.Schema) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	_, err := r.collection.InsertOne(context.Background(), s)
	if duplicateKey(err) {
		return 0, errors.Wrapf(errcode.ErrInputIllegal, "schema %d already exists", s.CptID)
	}
	if err != nil {
		return 0, errors.Wrap(err, "unable to insert schema")
	}

	return s.CptID, nil
}

func (r *mongoDBStore) ListSchema(c *datastore.SchemaCriteria) (*datastore.SchemaList, error) {
	if c == nil {
		c = &datastore.SchemaCriteria{
			Start:    0,
			PageSize: 10,
		}
	}

	bc := bson.M{}
	if c.Name != "" {
		p := fmt.Sprintf(".*%s.*", c.Name)
		bc["name"] = primitive.Regex{Pattern: p, Options: ""}
	}

	opts := options.Find().SetSort(bson.M{"cptid": 1}).SetSkip(int64(c.Start))
	if c.PageSize > 0 {
		opts = opts.SetLimit(int64(c.PageSize))
	}

	ctx := context.Background()
	count, err := r.collection.CountDocuments(ctx, bc)
	if err != nil {
		return nil, errors.Wrap(err, "unable to count schema")
	}

	results, err := r.collection.Find(ctx, bc, opts)
	if err != nil {
		return nil, errors.Wrap(err, "error trying to find schema")
	}

	out := datastore.SchemaList{
		Count:  int(count),
		Schema: []*datastore.Schema{},
	}

	err = results.All(ctx, &out.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode schema")
	}

	return &out, nil
}

func (r *mongoDBStore) GetSchema(cptID int) (*datastore.Schema, error) {
	schema := &datastore.Schema{}

	err := r.collection.FindOne(context.Background(), bson.M{"cptid": cptID}).Decode(schema)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", cptID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to load schema")
	}

	return schema, nil
}

func (r *mongoDBStore) DeleteSchema(cptID int) error {
	_, err := r.collection.DeleteOne(context.Background(), bson.M{"cptid": cptID})
	if err != nil {
		return errors.Wrap(err, "unable to delete schema")
	}

	return nil
}

func (r *mongoDBStore) UpdateSchema(s *datastore.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(context.Background(), bson.M{"cptid": s.CptID}, bson.M{"$set": s})
	if err != nil {
		return errors.Wrap(err, "unable to update schema")
	}

	if res.MatchedCount == 0 {
		return errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", s.CptID)
	}

	return nil
}

func duplicateKey(err error) bool {
	we, ok := err.(mongo.WriteException)
	if !ok {
		return false
	}

	for _, e := range we.WriteErrors {
		if e.Code == duplicateKeyCode {
			return true
		}
	}

	return false
}
