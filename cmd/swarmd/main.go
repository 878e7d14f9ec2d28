// Command swarmd runs the §8 concrete end-to-end scenarios against a
// real (in-process) wiring of every component: Context, Intent graph,
// Verifier, Promise/Trust ledger and Coordinator. It exists as a
// runnable demonstration of the wiring, not as a long-lived service —
// each scenario builds its own collaborators and exits once its task
// reaches a terminal state.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/synapsed-labs/swarmkit/config"
)

var allScenarios = []string{
	"happy-path",
	"postcondition-failure",
	"timeout-recovery",
	"permission-denial",
	"breaker-trip",
	"sub-agent-delegation",
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swarmd: config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	names := os.Args[1:]
	if len(names) == 0 {
		names = allScenarios
	}

	failed := false
	for _, name := range names {
		fmt.Printf("=== scenario: %s ===\n", name)
		if err := runScenario(ctx, name, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "swarmd: scenario %s: %v\n", name, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
