// chainscope — tool-chain assessment viewer for agent sessions.
package main

import "github.com/red-council/chainscope/internal/cli"

func main() {
	cli.Execute()
}
