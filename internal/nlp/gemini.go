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
	geminiAPIURL     = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModelLarge = "gemini-2.5-pro"
	geminiModelSmall = "gemini-2.5-flash"
	geminiEmbedModel = "text-embedding-004"
)

// GeminiEngine implements Engine against Google's Gemini API.
type GeminiEngine struct {
	apiKey     string
	httpClient *http.Client
}

func NewGeminiEngine(apiKey string) *GeminiEngine {
	return &GeminiEngine{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiChatRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiChatResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiEmbedRequest struct {
	Requests []struct {
		Model   string        `json:"model"`
		Content geminiContent `json:"content"`
	} `json:"requests"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *geminiError `json:"error,omitempty"`
}

func (e *GeminiEngine) model(size Size) string {
	if size == SizeLarge {
		return geminiModelLarge
	}
	return geminiModelSmall
}

func (e *GeminiEngine) Chat(ctx context.Context, size Size, system string, messages []Message) (string, error) {
	reqBody := geminiChatRequest{
		Contents: make([]geminiContent, 0, len(messages)),
	}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range messages {
		reqBody.Contents = append(reqBody.Contents, geminiContent{
			Role:  m.Role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIURL, e.model(size), e.apiKey)

	var respBody geminiChatResponse
	if err := e.post(ctx, url, reqBody, &respBody); err != nil {
		return "", err
	}
	if respBody.Error != nil {
		return "", fmt.Errorf("gemini API error: %s (%s)", respBody.Error.Message, respBody.Error.Status)
	}
	if len(respBody.Candidates) == 0 || len(respBody.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text string
	for _, part := range respBody.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

func (e *GeminiEngine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := geminiEmbedRequest{}
	for _, text := range texts {
		reqBody.Requests = append(reqBody.Requests, struct {
			Model   string        `json:"model"`
			Content geminiContent `json:"content"`
		}{
			Model:   "models/" + geminiEmbedModel,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		})
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", geminiAPIURL, geminiEmbedModel, e.apiKey)

	var respBody geminiEmbedResponse
	if err := e.post(ctx, url, reqBody, &respBody); err != nil {
		return nil, err
	}
	if respBody.Error != nil {
		return nil, fmt.Errorf("gemini API error: %s (%s)", respBody.Error.Message, respBody.Error.Status)
	}
	if len(respBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(respBody.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(respBody.Embeddings))
	for i, emb := range respBody.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *GeminiEngine) post(ctx context.Context, url string, reqBody, respBody interface{}) error {
	if e.apiKey == "" {
		return fmt.Errorf("gemini API key not provided")
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

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling gemini API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
