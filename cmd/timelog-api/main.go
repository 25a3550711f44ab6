package main

import (
	"fmt"
	"os"

	"github.com/chambrid/jira-timelog/internal/api"
)

// Build-time variables set by ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Set build information for API server
	buildInfo := api.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := api.Execute(buildInfo); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
