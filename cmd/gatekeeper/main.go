package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "Account registration, approval and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe, // serve is the default
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newCreateAdminCommand())
	return root
}

// teeLog mirrors the standard logger into path. The returned func closes the file.
func teeLog(path string) func() {
	if path == "" {
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", path, err)
		return func() {}
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return func() { _ = f.Close() }
}
