// Command graviton is the CLI for the sparse total-derivative engine.
package main

import "github.com/papapumpkin/graviton/cmd"

func main() {
	cmd.Execute()
}
