package main

import (
	"fmt"
	"os"

	"github.com/de-tools/workspace-steward/pkg/runtime/terminal"
	"github.com/de-tools/workspace-steward/pkg/store/client"
)

func main() {
	addr := os.Getenv("STEWARD_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	actor := os.Getenv("STEWARD_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
	}

	cli := terminal.NewCLI(terminal.Options{
		Client: client.New(addr, actor),
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
