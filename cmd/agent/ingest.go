package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a document for ingestion into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args[0], wait)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "poll until ingestion completes or fails")
	return cmd
}

func runIngest(path string, wait bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest("POST", baseURL+"/document/v1", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("unexpected response (status %s): %s", resp.Status, string(respBody))
	}
	if !env.Success {
		return fmt.Errorf("%s (code %d)", env.Message, env.Code)
	}

	var doc struct {
		Id       string `json:"id"`
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &doc); err != nil {
		return err
	}

	color.Green("Accepted: %s (%s)", doc.Filename, doc.Id)

	if !wait {
		return nil
	}

	for {
		time.Sleep(2 * time.Second)

		env, err := sendRequest("GET", "/document/v1/"+doc.Id, nil)
		if err != nil {
			return err
		}

		var status struct {
			Status        string `json:"status"`
			ChunkCount    int    `json:"chunk_count"`
			FailureReason string `json:"failure_reason"`
		}
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return err
		}

		switch status.Status {
		case "completed":
			color.Green("Ingested: %d chunks", status.ChunkCount)
			return nil
		case "failed":
			color.Red("Ingestion failed: %s", status.FailureReason)
			return fmt.Errorf("ingestion failed")
		default:
			color.Yellow("Status: %s ...", status.Status)
		}
	}
}
