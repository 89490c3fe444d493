/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"time"

	"github.com/hyperledger/aries-framework-go/pkg/common/log"
)

var logger = log.New("attestor/util")

// Logger is a backoff.Notify that logs every failed attempt.
func Logger(err error, next time.Duration) {
	logger.Warnf("retrying in %s: %v", next, err)
}
