/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	"github.com/spf13/cobra"

	"github.com/scoir/attestor/pkg/config"
	"github.com/scoir/attestor/pkg/framework/context"
)

var logger = log.New("attestor/cmd")

var (
	cfgFile       string
	datastoreFile string
	ledgerFile    string
	amqpFile      string
)

var conf config.Config
var ctx *context.Provider

var rootCmd = &cobra.Command{
	Use:   "attestor",
	Short: "Issues, redacts and verifies selectively disclosable credentials anchored on a ledger.",
	Long: `Issues, redacts and verifies selectively disclosable credentials anchored on a ledger.

 The start command serves the REST API, notifier forwards evidence notifications to webhooks
 and the remaining commands operate on the configured ledger and schema registry directly.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/attestor/attestor-config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datastoreFile, "datastore-config", "", "file holding the datastore section")
	rootCmd.PersistentFlags().StringVar(&ledgerFile, "ledger-config", "", "file holding the ledger section")
	rootCmd.PersistentFlags().StringVar(&amqpFile, "amqp-config", "", "file holding the amqp section")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	vp := &config.ViperConfigProvider{DefaultConfigName: "attestor-config"}
	conf = vp.Load(cfgFile)

	if datastoreFile != "" {
		conf = conf.WithDatastore(config.WithFile(datastoreFile))
	}
	if ledgerFile != "" {
		conf = conf.WithLedger(config.WithFile(ledgerFile))
	}
	if amqpFile != "" {
		conf = conf.WithAMQP(config.WithFile(amqpFile))
	}

	level, err := log.ParseLevel(conf.LogLevel())
	if err != nil {
		logger.Warnf("unknown log level %s: %v", conf.LogLevel(), err)
	} else {
		log.SetLevel("", level)
	}

	ctx = context.NewProvider(conf)
}

func printJSON(w io.Writer, v interface{}) error {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(d))
	return err
}
