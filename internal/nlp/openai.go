package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openaiChatURL    = "https://api.openai.com/v1/chat/completions"
	openaiEmbedURL   = "https://api.openai.com/v1/embeddings"
	openaiModelLarge = "gpt-4.1"
	openaiModelSmall = "gpt-4.1-mini"
	openaiEmbedModel = "text-embedding-3-small"
)

// OpenAIEngine implements Engine against OpenAI's API.
type OpenAIEngine struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIEngine(apiKey string) *OpenAIEngine {
	return &OpenAIEngine{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *openaiError `json:"error,omitempty"`
}

type openaiEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *openaiError `json:"error,omitempty"`
}

func (e *OpenAIEngine) model(size Size) string {
	if size == SizeLarge {
		return openaiModelLarge
	}
	return openaiModelSmall
}

func (e *OpenAIEngine) Chat(ctx context.Context, size Size, system string, messages []Message) (string, error) {
	reqBody := openaiChatRequest{
		Model:    e.model(size),
		Messages: make([]openaiMessage, 0, len(messages)+1),
	}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, openaiMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}

	var respBody openaiChatResponse
	if err := e.post(ctx, openaiChatURL, reqBody, &respBody); err != nil {
		return "", err
	}
	if respBody.Error != nil {
		return "", fmt.Errorf("openai API error: %s (%s)", respBody.Error.Message, respBody.Error.Type)
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return respBody.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := openaiEmbedRequest{
		Model: openaiEmbedModel,
		Input: texts,
	}

	var respBody openaiEmbedResponse
	if err := e.post(ctx, openaiEmbedURL, reqBody, &respBody); err != nil {
		return nil, err
	}
	if respBody.Error != nil {
		return nil, fmt.Errorf("openai API error: %s (%s)", respBody.Error.Message, respBody.Error.Type)
	}
	if len(respBody.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(respBody.Data), len(texts))
	}

	// The API documents data as index-ordered; keep the explicit index anyway.
	vectors := make([][]float32, len(texts))
	for _, d := range respBody.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai returned embedding with index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (e *OpenAIEngine) post(ctx context.Context, url string, reqBody, respBody interface{}) error {
	if e.apiKey == "" {
		return fmt.Errorf("openai API key not provided")
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqJSON))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling openai API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
