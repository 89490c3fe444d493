/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	evidenceByKey bool
	evidenceLog   string
	customKey     string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Reads and writes ledger evidence",
}

var evidenceGetCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Prints the reconciled evidence of a hash, or of a custom key with --key",
	Args:  cobra.ExactArgs(1),
	RunE:  getEvidence,
}

var evidenceCreateCmd = &cobra.Command{
	Use:   "create <hash>",
	Short: "Anchors a hash with the configured ledger key",
	Args:  cobra.ExactArgs(1),
	RunE:  createEvidence,
}

func getEvidence(cmd *cobra.Command, args []string) error {
	svc, err := ctx.EvidenceService()
	if err != nil {
		return err
	}

	if evidenceByKey {
		info, err := svc.GetInfoByCustomKey(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	}

	info, err := svc.GetInfo(context.Background(), args[0])
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), info)
}

func createEvidence(cmd *cobra.Command, args []string) error {
	svc, err := ctx.EvidenceService()
	if err != nil {
		return err
	}

	key, err := ctx.SigningKey()
	if err != nil {
		return err
	}

	var hash string
	if customKey != "" {
		hash, err = svc.CreateEvidenceWithCustomKey(context.Background(), args[0], evidenceLog, customKey, key)
	} else {
		hash, err = svc.CreateEvidence(context.Background(), args[0], evidenceLog, key)
	}
	if err != nil {
		return err
	}

	cmd.Printf("created evidence %s\n", hash)
	return nil
}

func init() {
	evidenceGetCmd.Flags().BoolVar(&evidenceByKey, "key", false, "treat the argument as a custom key")
	evidenceCreateCmd.Flags().StringVar(&evidenceLog, "log", "", "initial log entry")
	evidenceCreateCmd.Flags().StringVar(&customKey, "custom-key", "", "custom key bound to the hash")
	evidenceCmd.AddCommand(evidenceGetCmd, evidenceCreateCmd)
	rootCmd.AddCommand(evidenceCmd)
}
