/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"encoding/json"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/attestor/pkg/credential"
)

var (
	verifyIssuer    string
	verifyPublicKey string
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Works with issued credentials",
}

var credentialVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verifies the credential bundle held in a JSON file",
	Long: `Verifies the credential bundle held in a JSON file against the identity document of its
issuer, of --issuer, or against --public-key.`,
	Args: cobra.ExactArgs(1),
	RunE: verifyCredential,
}

func readBundle(file string) (*credential.Bundle, error) {
	d, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read credential file %s", file)
	}

	b := &credential.Bundle{}
	if err := json.Unmarshal(d, b); err != nil {
		return nil, errors.Wrapf(err, "invalid credential file %s", file)
	}

	if b.Credential == nil {
		return nil, errors.Errorf("credential file %s holds no credential", file)
	}

	return b, nil
}

func verifyCredential(cmd *cobra.Command, args []string) error {
	b, err := readBundle(args[0])
	if err != nil {
		return err
	}

	svc, err := ctx.CredentialService()
	if err != nil {
		return err
	}

	if verifyPublicKey != "" {
		err = svc.VerifyWithKey(b, verifyPublicKey)
	} else {
		issuer := verifyIssuer
		if issuer == "" {
			issuer = b.Credential.Issuer
		}
		err = svc.Verify(context.Background(), b, issuer)
	}
	if err != nil {
		return err
	}

	cmd.Printf("credential %s verified\n", b.Credential.ID)
	return nil
}

func init() {
	credentialVerifyCmd.Flags().StringVar(&verifyIssuer, "issuer", "", "issuer identifier to verify against")
	credentialVerifyCmd.Flags().StringVar(&verifyPublicKey, "public-key", "", "base58 public key to verify against")
	credentialCmd.AddCommand(credentialVerifyCmd)
	rootCmd.AddCommand(credentialCmd)
}
