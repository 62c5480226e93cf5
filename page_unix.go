// SPDX-License-Identifier: Apache-2.0

//go:build unix

package hybridlist

import (
	"golang.org/x/sys/unix"
)

func osPageSize() int {
	return unix.Getpagesize()
}
