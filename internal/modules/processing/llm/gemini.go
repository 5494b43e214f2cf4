package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	appcfg "github.com/slidehub/ai-service/internal/config"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Gemini generateContent endpoint over plain HTTP.
type GeminiClient struct {
	apiKey      string
	model       string
	endpoint    string
	temperature *float64
	maxTokens   int
	http        *http.Client
}

func NewGeminiClient(p appcfg.ProviderConfig, httpClient *http.Client) *GeminiClient {
	endpoint := strings.TrimRight(strings.TrimSpace(p.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		apiKey:      p.APIKey,
		model:       p.Model,
		endpoint:    endpoint,
		temperature: floatPtr(p.Temperature),
		maxTokens:   p.MaxTokens,
		http:        httpClient,
	}
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", errMissingAPIKey
	}
	model := firstNonEmpty(req.Model, g.model)

	parts := make([]geminiPart, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		if p.Text != "" {
			parts = append(parts, geminiPart{Text: p.Text})
		}
	}
	if req.Prompt != "" {
		parts = append(parts, geminiPart{Text: req.Prompt})
	}

	body := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	if strings.TrimSpace(req.System) != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	genCfg := geminiGenerationConfig{
		Temperature:     pickTemperature(req.Temperature, g.temperature),
		MaxOutputTokens: pickInt(req.MaxTokens, g.maxTokens),
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}
	if genCfg != (geminiGenerationConfig{}) {
		body.GenerationConfig = &genCfg
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	// The key travels in a header so transport errors, which quote the URL,
	// never carry it into logs.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, neturl.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini error: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 300))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && result.Error.Message != "" {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}
