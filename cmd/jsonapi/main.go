package main

import (
	"fmt"
	"os"

	"github.com/fivetwenty-io/jsonapi-client/cmd/jsonapi/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := commands.NewRootCommand(version, commit, date).Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
