package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive research session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive()
		},
	}
}

func runInteractive() error {
	sessionId, err := createSession("Interactive CLI Session")
	if err != nil {
		return err
	}

	color.Cyan("Research session started (%s)", sessionId)
	color.Cyan("Type a question, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		if err := runQueryStream(sessionId, query); err != nil {
			color.Red("Error: %v", err)
		}
		fmt.Println()
	}
	return scanner.Err()
}
