// Command golink hosts the account-linking engine outside a game server.
//
//	golink serve   --config golink.yml   # HTTP command surface + /metrics
//	golink console --config golink.yml   # stdin REPL: <player> <command> [args...]
//
// Process settings come from GOLINK_* environment variables; the YAML file
// holds the webhook URL, message texts and the link: tuning block.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
