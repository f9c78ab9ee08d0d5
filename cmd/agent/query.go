package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var sessionId string
	var noStream bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Run one research query against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			if sessionId == "" {
				id, err := createSession("")
				if err != nil {
					return err
				}
				sessionId = id
			}

			if noStream {
				return runQuerySync(sessionId, query)
			}
			return runQueryStream(sessionId, query)
		},
	}

	cmd.Flags().StringVar(&sessionId, "session", "", "existing session id (a new session is created when empty)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for the full answer instead of streaming")
	return cmd
}

func runQuerySync(sessionId, query string) error {
	env, err := sendRequest("POST", "/chat/v1", map[string]interface{}{
		"chat_session_id": sessionId,
		"query":           query,
	})
	if err != nil {
		return err
	}

	var data struct {
		Reply struct {
			Content string `json:"content"`
		} `json:"reply"`
		Sources        []string `json:"sources"`
		RelevanceScore float64  `json:"relevance_score"`
		Iterations     int      `json:"iterations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return err
	}

	fmt.Println(data.Reply.Content)
	printResearchFooter(data.Sources, data.RelevanceScore, data.Iterations)
	return nil
}

func runQueryStream(sessionId, query string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_session_id": sessionId,
		"query":           query,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", baseURL+"/chat/v1/stream", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream request failed: %s", resp.Status)
	}

	var eventName string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			handleStreamEvent(eventName, strings.TrimPrefix(line, "data: "))
		}
	}
	return scanner.Err()
}

func handleStreamEvent(eventName, data string) {
	switch eventName {
	case "node_start":
		var node struct {
			Node string `json:"node"`
		}
		json.Unmarshal([]byte(data), &node)
		color.Yellow("[%s]", node.Node)
	case "token":
		var tok struct {
			Token string `json:"token"`
		}
		json.Unmarshal([]byte(data), &tok)
		fmt.Print(tok.Token)
	case "synthesis_complete":
		var syn struct {
			Sources        []string `json:"sources"`
			RelevanceScore float64  `json:"relevance_score"`
			Iterations     int      `json:"iterations"`
		}
		json.Unmarshal([]byte(data), &syn)
		fmt.Println()
		printResearchFooter(syn.Sources, syn.RelevanceScore, syn.Iterations)
	case "complete":
		color.Green("Done")
	case "error":
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal([]byte(data), &e)
		color.Red("Error: %s", e.Error)
	}
}

func printResearchFooter(sources []string, relevance float64, iterations int) {
	if len(sources) > 0 {
		color.Cyan("Sources: %s", strings.Join(sources, ", "))
	}
	color.Cyan("Relevance: %.1f | Iterations: %d", relevance, iterations)
}
