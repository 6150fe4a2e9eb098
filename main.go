// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/earpack/earpack/cmd/earpack"

func main() {
	cmd.Execute()
}
