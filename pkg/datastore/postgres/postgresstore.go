/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/errcode"
)

const (
	tablePrefix = "t_"

	uniqueViolation = "23505"
)

var (
	logger    = log.New("attestor/postgres")
	validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Provider represents a Postgres DB implementation of the datastore.Provider interface
type Provider struct {
	db  *sql.DB
	dbs map[string]*sqlDBStore
	sync.RWMutex
}

type sqlDBStore struct {
	db        *sql.DB
	tableName string
}

// NewProvider instantiates Provider
func NewProvider(config *Config) (*Provider, error) {
	if config == nil {
		return nil, errors.New("info for new postgres DB provider can't be empty")
	}

	db, err := sql.Open("pgx", config.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open connection")
	}

	return &Provider{
		db:  db,
		dbs: map[string]*sqlDBStore{},
	}, nil
}

// OpenStore creates the table of name space name if needed and returns its store.
func (p *Provider) OpenStore(name string) (datastore.Store, error) {
	p.Lock()
	defer p.Unlock()

	if name == "" {
		return nil, errors.New("store name is required")
	}

	if !validName.MatchString(name) {
		return nil, errors.Errorf("invalid store name %q", name)
	}

	if store, ok := p.dbs[name]; ok {
		return store, nil
	}

	tableName := tablePrefix + name
	createTableStmt := `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (cptid INTEGER NOT NULL, data JSONB, PRIMARY KEY (cptid));`

	_, err := p.db.Exec(createTableStmt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create table %s", tableName)
	}
	logger.Debugf("opened schema table %s", tableName)

	store := &sqlDBStore{
		db:        p.db,
		tableName: tableName,
	}

	p.dbs[name] = store

	return store, nil
}

// Close closes the provider.
func (p *Provider) Close() error {
	p.Lock()
	defer p.Unlock()

	p.dbs = make(map[string]*sqlDBStore)

	return p.db.Close()
}

// CloseStore forgets a previously opened store.  The shared connection stays open.
func (p *Provider) CloseStore(name string) error {
	p.Lock()
	defer p.Unlock()

	delete(p.dbs, name)

	return nil
}

func (p *sqlDBStore) InsertSchema(s *datastore.Schema) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	_, err := p.db.Exec(fmt.Sprintf(`INSERT INTO %s (cptid, data) VALUES ($1, $2)`, p.tableName), s.CptID, s)
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == uniqueViolation {
		return 0, errors.Wrapf(errcode.ErrInputIllegal, "schema %d already exists", s.CptID)
	}
	if err != nil {
		return 0, errors.Wrap(err, "unable to insert schema")
	}

	return s.CptID, nil
}

func (p *sqlDBStore) ListSchema(c *datastore.SchemaCriteria) (*datastore.SchemaList, error) {
	if c == nil {
		c = &datastore.SchemaCriteria{
			Start:    0,
			PageSize: 10,
		}
	}

	filter := "%" + c.Name + "%"

	var count int
	row := p.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE data ->> 'name' LIKE $1`, p.tableName), filter)
	if err := row.Scan(&count); err != nil {
		return nil, errors.Wrap(err, "unable to count schema")
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE data ->> 'name' LIKE $1 ORDER BY cptid OFFSET %d`, p.tableName, c.Start)
	if c.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d", c.PageSize)
	}

	rows, err := p.db.Query(query, filter)
	if err != nil {
		return nil, errors.Wrap(err, "error trying to find schema")
	}
	defer rows.Close()

	all := []*datastore.Schema{}
	for rows.Next() {
		s := &datastore.Schema{}
		if err := rows.Scan(s); err != nil {
			return nil, errors.Wrap(err, "unable to decode schema")
		}

		all = append(all, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning rows")
	}

	return &datastore.SchemaList{
		Count:  count,
		Schema: all,
	}, nil
}

func (p *sqlDBStore) GetSchema(cptID int) (*datastore.Schema, error) {
	s := &datastore.Schema{}
	row := p.db.QueryRow(fmt.Sprintf(`SELECT data FROM %s WHERE cptid = $1`, p.tableName), cptID)

	err := row.Scan(s)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", cptID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to load schema")
	}

	return s, nil
}

func (p *sqlDBStore) DeleteSchema(cptID int) error {
	_, err := p.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE cptid = $1`, p.tableName), cptID)
	if err != nil {
		return errors.Wrap(err, "unable to delete schema")
	}

	return nil
}

func (p *sqlDBStore) UpdateSchema(s *datastore.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}

	res, err := p.db.Exec(fmt.Sprintf(`UPDATE %s SET data = $2 WHERE cptid = $1`, p.tableName), s.CptID, s)
	if err != nil {
		return errors.Wrap(err, "unable to update schema")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to update schema")
	}

	if n == 0 {
		return errors.Wrapf(errcode.ErrSchemaNotFound, "cptId %d", s.CptID)
	}

	return nil
}
