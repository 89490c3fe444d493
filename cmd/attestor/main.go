/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/scoir/attestor/pkg/attestor/cmd"
)

func main() {
	cmd.Execute()
}
