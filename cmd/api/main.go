package main

import (
	"log"
	"os"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	root := newRootCommand(os.Stdout, buildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err := root.Execute(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}
