package gemini

import (
	"ai-research-agent-be/pkg/llm"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	ApiKey    string
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.StreamingProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	return &GeminiProvider{
		ApiKey:    apiKey,
		BaseURL:   defaultBaseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// --- Interface Implementation ---

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := applyOptions(opts)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.BaseURL, p.model(options))
	bodyBytes, err := p.post(ctx, url, buildRequest(history, options))
	if err != nil {
		return "", err
	}

	var genResp generateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("gemini api error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty candidates from gemini api")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateStream uses the SSE variant of the generate endpoint. Each
// "data:" line carries a generateResponse with an incremental part.
func (p *GeminiProvider) GenerateStream(ctx context.Context, prompt string, onToken func(string), opts ...llm.Option) (string, error) {
	options := applyOptions(opts)
	history := []llm.Message{{Role: "user", Content: prompt}}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.BaseURL, p.model(options))
	resp, err := p.doRequest(ctx, url, buildRequest(history, options))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return full.String(), fmt.Errorf("unmarshal stream chunk: %w", err)
		}
		for _, cand := range chunk.Candidates {
			for _, prt := range cand.Content.Parts {
				if prt.Text != "" {
					full.WriteString(prt.Text)
					onToken(prt.Text)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), llm.Transient(fmt.Errorf("read stream: %w", err))
	}

	return full.String(), nil
}

// --- Helpers ---

func applyOptions(opts []llm.Option) *llm.Options {
	options := &llm.Options{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func (p *GeminiProvider) model(options *llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return p.ModelName
}

func buildRequest(history []llm.Message, options *llm.Options) generateRequest {
	contents := make([]content, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		// Gemini only accepts "user" and "model" roles
		switch role {
		case "assistant":
			role = "model"
		case "system":
			role = "user"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: msg.Content}},
		})
	}

	cfg := &generationConfig{Temperature: options.Temperature}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = options.MaxTokens
	}

	return generateRequest{Contents: contents, GenerationConfig: cfg}
}

func (p *GeminiProvider) post(ctx context.Context, url string, payload generateRequest) ([]byte, error) {
	resp, err := p.doRequest(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.Transient(fmt.Errorf("read response: %w", err))
	}
	return bodyBytes, nil
}

func (p *GeminiProvider) doRequest(ctx context.Context, url string, payload generateRequest) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.ApiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, llm.Transient(fmt.Errorf("gemini request failed: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		err := fmt.Errorf("gemini error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, llm.Transient(err)
		}
		return nil, err
	}

	return resp, nil
}
