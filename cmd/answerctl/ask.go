package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the daemon one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			client := &http.Client{Timeout: timeout}
			resp, err := client.PostForm(serverURL+"/get", url.Values{"msg": {question}})
			if err != nil {
				return fmt.Errorf("asking daemon: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading answer: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("daemon replied %s: %s", resp.Status, strings.TrimSpace(string(body)))
			}

			fmt.Println(strings.TrimSpace(string(body)))
			return nil
		},
	}

	// Turns can legitimately take minutes when the revision loop runs long.
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "request timeout")

	return cmd
}
