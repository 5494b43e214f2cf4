package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appcfg "github.com/slidehub/ai-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestCompleteSwallowsErrors(t *testing.T) {
	c := NewClient("fake", GeneratorFunc(func(context.Context, Request) (string, error) {
		return "", errors.New("boom")
	}), zap.NewNop())

	res := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.False(t, res.OK())
	assert.Empty(t, res.Text)
	assert.EqualError(t, res.Err, "boom")
	assert.Equal(t, "boom", res.Reason())
}

func TestCompleteRecoversPanics(t *testing.T) {
	c := NewClient("fake", GeneratorFunc(func(context.Context, Request) (string, error) {
		panic("provider exploded")
	}), zap.NewNop())

	res := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.False(t, res.OK())
	assert.Error(t, res.Err)
}

func TestCompleteAppliesTimeout(t *testing.T) {
	c := NewClient("fake", GeneratorFunc(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), zap.NewNop(), WithTimeout(20*time.Millisecond))

	res := c.Complete(context.Background(), Request{Prompt: "slow"})
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestCompleteEmptyTextIsNotOK(t *testing.T) {
	c := NewClient("fake", GeneratorFunc(func(context.Context, Request) (string, error) {
		return "   ", nil
	}), zap.NewNop())

	res := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.NoError(t, res.Err)
	assert.False(t, res.OK())
	assert.Equal(t, ErrEmptyResponse.Error(), res.Reason())
}

func TestDescribeImageDetectsMIME(t *testing.T) {
	var got Request
	c := NewClient("fake", GeneratorFunc(func(_ context.Context, req Request) (string, error) {
		got = req
		return "Una diapositiva sobre Go.", nil
	}), zap.NewNop())

	res := c.DescribeImage(context.Background(), pngHeader)
	require.True(t, res.OK())
	require.Len(t, got.Parts, 2)
	assert.Equal(t, "image/png", got.Parts[0].MIMEType)
	assert.Equal(t, pngHeader, got.Parts[0].Data)
	assert.Contains(t, got.Parts[1].Text, "3-4 oraciones")

	empty := c.DescribeImage(context.Background(), nil)
	assert.False(t, empty.OK())
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test_key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		parts := body.Contents[0].Parts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[0].InlineData)
		assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), parts[0].InlineData.Data)
		assert.Equal(t, "describe", parts[1].Text)
		require.NotNil(t, body.GenerationConfig)
		assert.Equal(t, "application/json", body.GenerationConfig.ResponseMIMEType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"hola"}]}}]}`)
	}))
	defer server.Close()

	g := NewGeminiClient(appcfg.ProviderConfig{
		Type: "gemini", APIKey: "test_key", Endpoint: server.URL, Model: "gemini-1.5-flash",
	}, server.Client())
	text, err := g.Generate(context.Background(), Request{
		Parts: []Part{{Data: pngHeader, MIMEType: "image/png"}, {Text: "describe"}},
		JSON:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
}

func TestGeminiNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota"}}`)
	}))
	defer server.Close()

	g := NewGeminiClient(appcfg.ProviderConfig{APIKey: "k", Endpoint: server.URL, Model: "m"}, server.Client())
	c := NewClient("gemini", g, zap.NewNop())
	res := c.Complete(context.Background(), Request{Prompt: "hi"})
	assert.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "429")
}

func TestGeminiTransportErrorHidesAPIKey(t *testing.T) {
	const key = "SECRET-KEY-123"
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	core, logs := observer.New(zap.DebugLevel)
	g := NewGeminiClient(appcfg.ProviderConfig{APIKey: key, Endpoint: endpoint, Model: "m"}, &http.Client{})
	c := NewClient("gemini", g, zap.New(core))

	res := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, res.Err)
	assert.NotContains(t, res.Err.Error(), key)
	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, key)
		for field, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), key, "field %s", field)
		}
	}
}

func TestOpenAICompatibleGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama", body["model"])
		assert.EqualValues(t, 1024, body["max_tokens"])
		messages := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "```json\n{}\n```"}}},
		})
	}))
	defer server.Close()

	gen, err := NewGenerator(appcfg.ProviderConfig{
		Type: "openai-compatible", APIKey: "sk-test", Endpoint: server.URL + "/v1", Model: "llama",
		Temperature: 0.7, MaxTokens: 1024,
	}, server.Client())
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), Request{System: "sys", Prompt: "user"})
	require.NoError(t, err)
	assert.Equal(t, "{}", StripFences(text))
}

func TestOpenAIChatViaSDK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"title\":\"x\"}"}}]
		}`)
	}))
	defer server.Close()

	gen, err := NewGenerator(appcfg.ProviderConfig{
		Type: "groq", APIKey: "gsk", Endpoint: server.URL + "/openai", Model: "llama-3.3-70b-versatile",
		Temperature: 0.7, MaxTokens: 1024,
	}, server.Client())
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), Request{System: "sys", Prompt: "user"})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, text)

	_, err = gen.Generate(context.Background(), Request{Parts: []Part{{Data: pngHeader, MIMEType: "image/png"}}})
	assert.ErrorIs(t, err, errUnsupportedPart)
}

func TestNewGeneratorRejectsUnknownType(t *testing.T) {
	_, err := NewGenerator(appcfg.ProviderConfig{Type: "cohere"}, nil)
	assert.Error(t, err)
}

func TestNormalizeEndpoints(t *testing.T) {
	assert.Equal(t, "https://api.groq.com/openai/v1", normalizeOpenAIBaseURL("https://api.groq.com/openai"))
	assert.Equal(t, "https://api.openai.com/v1", normalizeOpenAIBaseURL("https://api.openai.com/v1/"))
	assert.Equal(t, "https://gw.example.com", normalizeOpenAICompatibleEndpoint("https://gw.example.com/v1"))
	assert.Equal(t, "https://api.openai.com", normalizeOpenAICompatibleEndpoint(""))
}
