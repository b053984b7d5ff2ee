package main

import (
	"os"

	treeagentcmder "github.com/papercomputeco/treeagent/cmd/treeagent"
)

func main() {
	cmd := treeagentcmder.NewTreeagentCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
