package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	appcfg "github.com/slidehub/ai-service/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
)

var (
	errMissingAPIKey   = errors.New("AI provider api key is empty")
	errUnsupportedPart = errors.New("provider binding does not accept inline images")
)

const (
	defaultGroqEndpoint   = "https://api.groq.com/openai"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultFallbackTokens = 1024
	openAICompatiblePath  = "/v1/chat/completions"
	providerOpenAICompat  = "openai-compatible"
	providerGemini        = "gemini"
	providerAnthropic     = "anthropic"
	providerGroq          = "groq"
	providerOpenAI        = "openai"
)

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	if t == "openaicompatible" {
		return providerOpenAICompat
	}
	return t
}

// NewGenerator builds the binding selected by the provider type.
func NewGenerator(p appcfg.ProviderConfig, httpClient *http.Client) (Generator, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	switch normalizeProviderType(p.Type) {
	case providerGemini:
		return NewGeminiClient(p, httpClient), nil
	case providerOpenAICompat:
		return newOpenAICompatible(p, httpClient), nil
	case providerGroq, providerOpenAI:
		return newOpenAIChat(p, httpClient), nil
	case providerAnthropic:
		return newAnthropic(p, httpClient)
	default:
		return nil, fmt.Errorf("unsupported AI provider type %q", p.Type)
	}
}

// openAIChat talks to OpenAI and Groq through the official SDK.
type openAIChat struct {
	client      openaiclient.Client
	model       string
	temperature float64
	maxTokens   int
	apiKey      string
}

func newOpenAIChat(p appcfg.ProviderConfig, httpClient *http.Client) *openAIChat {
	endpoint := p.Endpoint
	if endpoint == "" && normalizeProviderType(p.Type) == providerGroq {
		endpoint = defaultGroqEndpoint
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(p.APIKey)),
		openaioption.WithMaxRetries(0),
		openaioption.WithHTTPClient(httpClient),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	return &openAIChat{
		client:      openaiclient.NewClient(opts...),
		model:       firstNonEmpty(p.Model, defaultOpenAIModel),
		temperature: p.Temperature,
		maxTokens:   p.MaxTokens,
		apiKey:      strings.TrimSpace(p.APIKey),
	}
}

func (o *openAIChat) Generate(ctx context.Context, req Request) (string, error) {
	if o.apiKey == "" {
		return "", errMissingAPIKey
	}
	prompt, err := textOnlyPrompt(req)
	if err != nil {
		return "", err
	}

	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaiclient.SystemMessage(req.System))
	}
	messages = append(messages, openaiclient.UserMessage(prompt))

	params := openaiclient.ChatCompletionNewParams{
		Model:     openaiclient.ChatModel(firstNonEmpty(req.Model, o.model)),
		Messages:  messages,
		MaxTokens: openaiclient.Int(int64(pickInt(req.MaxTokens, o.maxTokens, defaultFallbackTokens))),
	}
	if t := pickTemperature(req.Temperature, &o.temperature); t != nil {
		params.Temperature = openaiclient.Float(*t)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return completion.Choices[0].Message.Content, nil
}

// anthropicGen uses the jetify AI abstraction over the Anthropic SDK.
type anthropicGen struct {
	model       jetapi.LanguageModel
	temperature float64
	maxTokens   int
}

func newAnthropic(p appcfg.ProviderConfig, httpClient *http.Client) (*anthropicGen, error) {
	apiKey := strings.TrimSpace(p.APIKey)
	if apiKey == "" {
		return nil, errMissingAPIKey
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
		anthropicoption.WithHTTPClient(httpClient),
	}
	if endpoint := strings.TrimSpace(p.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := anthropicclient.NewClient(opts...)
	model := jetanthropic.NewLanguageModel(firstNonEmpty(p.Model, defaultAnthropicModel), jetanthropic.WithClient(client))
	return &anthropicGen{model: model, temperature: p.Temperature, maxTokens: p.MaxTokens}, nil
}

func (a *anthropicGen) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := textOnlyPrompt(req)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(
		ctx,
		buildAIPromptMessages(req.System, prompt),
		jetai.WithModel(a.model),
		jetai.WithMaxOutputTokens(pickInt(req.MaxTokens, a.maxTokens, defaultFallbackTokens)),
		jetai.WithTemperature(*pickTemperature(req.Temperature, &a.temperature)),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromAIResponse(resp)
}

func buildAIPromptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractTextFromAIResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}
	return full.String(), nil
}

// openAICompatible speaks the chat completions wire format directly, which
// covers gateways that reject the SDK's extra headers. It accepts inline
// images as data URLs.
type openAICompatible struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
}

func newOpenAICompatible(p appcfg.ProviderConfig, httpClient *http.Client) *openAICompatible {
	return &openAICompatible{
		endpoint:    normalizeOpenAICompatibleEndpoint(p.Endpoint),
		apiKey:      strings.TrimSpace(p.APIKey),
		model:       firstNonEmpty(p.Model, defaultOpenAIModel),
		temperature: p.Temperature,
		maxTokens:   p.MaxTokens,
		http:        httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

func (o *openAICompatible) Generate(ctx context.Context, req Request) (string, error) {
	if o.apiKey == "" {
		return "", errMissingAPIKey
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent(req)})

	body := map[string]any{
		"model":       firstNonEmpty(req.Model, o.model),
		"messages":    messages,
		"max_tokens":  pickInt(req.MaxTokens, o.maxTokens, defaultFallbackTokens),
		"temperature": *pickTemperature(req.Temperature, &o.temperature),
	}
	if req.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+openAICompatiblePath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai-compatible error: status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 300))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return result.Choices[0].Message.Content, nil
}

func userContent(req Request) any {
	hasImage := false
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			hasImage = true
			break
		}
	}
	if !hasImage {
		prompt, _ := textOnlyPrompt(req)
		return prompt
	}

	parts := make([]chatContentPart, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			url := "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
			parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: url}})
			continue
		}
		if p.Text != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: p.Text})
		}
	}
	if req.Prompt != "" {
		parts = append(parts, chatContentPart{Type: "text", Text: req.Prompt})
	}
	return parts
}

// textOnlyPrompt flattens text parts and the prompt into one message.
func textOnlyPrompt(req Request) (string, error) {
	pieces := make([]string, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			return "", errUnsupportedPart
		}
		if p.Text != "" {
			pieces = append(pieces, p.Text)
		}
	}
	if req.Prompt != "" {
		pieces = append(pieces, req.Prompt)
	}
	return strings.Join(pieces, "\n\n"), nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}

	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(base, "/"), "/v1")
	}
	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/v1")
	return strings.TrimRight(parsed.String(), "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func pickInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func pickTemperature(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
