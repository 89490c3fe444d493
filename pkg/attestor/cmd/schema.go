/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"io/ioutil"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/attestor/pkg/datastore"
)

var schemaName string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manages the claim schema registry",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Registers the schema held in a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  createSchema,
}

var schemaGetCmd = &cobra.Command{
	Use:   "get <cptId>",
	Short: "Prints a registered schema",
	Args:  cobra.ExactArgs(1),
	RunE:  getSchema,
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists registered schemas",
	RunE:  listSchema,
}

func createSchema(cmd *cobra.Command, args []string) error {
	d, err := ioutil.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "unable to read schema file %s", args[0])
	}

	s := &datastore.Schema{}
	if err := json.Unmarshal(d, s); err != nil {
		return errors.Wrapf(err, "invalid schema file %s", args[0])
	}

	if err := s.Validate(); err != nil {
		return err
	}

	store, err := ctx.SchemaStore()
	if err != nil {
		return err
	}

	id, err := store.InsertSchema(s)
	if err != nil {
		return err
	}

	cmd.Printf("registered schema %d\n", id)
	return nil
}

func getSchema(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(err, "invalid cptId %s", args[0])
	}

	store, err := ctx.SchemaStore()
	if err != nil {
		return err
	}

	s, err := store.GetSchema(id)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), s)
}

func listSchema(cmd *cobra.Command, _ []string) error {
	store, err := ctx.SchemaStore()
	if err != nil {
		return err
	}

	list, err := store.ListSchema(&datastore.SchemaCriteria{Name: schemaName})
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), list)
}

func init() {
	schemaListCmd.Flags().StringVar(&schemaName, "name", "", "only list schemas whose name contains this")
	schemaCmd.AddCommand(schemaCreateCmd, schemaGetCmd, schemaListCmd)
	rootCmd.AddCommand(schemaCmd)
}
