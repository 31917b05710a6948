// Answerctl is a small operator CLI for a running answerd daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "answerctl",
		Short: "Operator CLI for the answerd daemon",
		Long: `answerctl talks to a running answerd daemon: ask questions,
check health, and exercise the chat endpoint from scripts.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "answerd base URL")

	root.AddCommand(newAskCmd())
	root.AddCommand(newHealthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
