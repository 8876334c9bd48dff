package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "liitos",
		Short: "Integration Lifecycle Engine",
		Long: `Liitos - Integration Lifecycle Engine

Liitos drives the onboarding lifecycle of cloud data resources into a
PII-scanning agent: discovery scans, target selection, auto- and
manual approval, installation confirmation, and the audit trail behind
all of it.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Liitos {{.Version}} - Integration Lifecycle Engine
`)
}
