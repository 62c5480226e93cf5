// SPDX-License-Identifier: Apache-2.0

//go:build hybridlist_nodebug

package hybridlist

const debugChecks = false

func assertIndex(string, int, int) {}
