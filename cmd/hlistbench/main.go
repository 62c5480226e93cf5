// SPDX-License-Identifier: Apache-2.0

// Command hlistbench runs append workloads against hybrid lists and reports
// how their storage grew.
package main

func main() {
	execute()
}
