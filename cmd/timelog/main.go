package main

import (
	"fmt"
	"os"

	"github.com/chambrid/jira-timelog/internal/cli"
)

// Build-time variables set by ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	buildInfo := cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := cli.Execute(buildInfo); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
