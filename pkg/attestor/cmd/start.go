/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/attestor/pkg/apiserver"
	"github.com/scoir/attestor/pkg/controller"
)

var shutdownTimeout time.Duration

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the attestor REST API",
	Long:  `Starts the attestor REST API on the endpoint configured under api.`,
	RunE:  runStart,
}

func runStart(_ *cobra.Command, _ []string) error {
	defer func() {
		if err := ctx.Close(); err != nil {
			logger.Warnf("unable to close provider: %v", err)
		}
	}()

	srv, err := apiserver.New(ctx)
	if err != nil {
		return errors.Wrap(err, "error initializing attestor api")
	}

	runner, err := controller.New(conf, srv)
	if err != nil {
		return errors.Wrap(err, "unable to start attestor api")
	}

	go func() {
		waitForSignal()
		if err := runner.Shutdown(shutdownTimeout); err != nil {
			logger.Errorf("unclean shutdown: %v", err)
		}
	}()

	if err = runner.Launch(); err != nil {
		return errors.Wrap(err, "launch errored")
	}

	logger.Infof("Shutdown")
	return nil
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func init() {
	startCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for in-flight requests on shutdown")
	rootCmd.AddCommand(startCmd)
}
