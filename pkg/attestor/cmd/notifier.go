/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/attestor/pkg/notifier"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Forwards evidence notifications to webhooks",
	Long:  `Consumes evidence notifications from the message queue and posts them to the configured webhooks.`,
	RunE:  runNotifier,
}

func runNotifier(_ *cobra.Command, _ []string) error {
	srv, err := notifier.New(ctx)
	if err != nil {
		return errors.Wrap(err, "error initializing notifier")
	}

	go func() {
		waitForSignal()
		if err := srv.Stop(); err != nil {
			logger.Errorf("unable to stop notifier: %v", err)
		}
	}()

	logger.Infof("notifier listening")
	err = srv.Start()
	logger.Infof("notifier stopped: %v", err)
	return nil
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
