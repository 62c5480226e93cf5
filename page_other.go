// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package hybridlist

import (
	"os"
)

func osPageSize() int {
	return os.Getpagesize()
}
