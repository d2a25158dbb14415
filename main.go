// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/gitsync/cmd/gitsync"

// execute is overridable in tests.
var execute = gitsync.Execute

func main() {
	execute()
}
