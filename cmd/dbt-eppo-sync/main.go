// Package main provides the dbt-eppo-sync CLI entry point.
package main

import (
	"os"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
