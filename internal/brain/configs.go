package brain

import (
	"encoding/json"
	"os"
	"strings"
)

// Provider configurations

// ClaudeConfig is the last-resort text provider when an Anthropic key is set.
func ClaudeConfig(apiKey, model string) *ProviderConfig {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &ProviderConfig{
		Name:       "claude",
		Endpoint:   "https://api.anthropic.com/v1/messages",
		APIKey:     apiKey,
		Model:      orDefault(model, getEnvOr("CLAUDE_MODEL", "claude-sonnet-4-5-20250929")),
		AuthHeader: "x-api-key",
		AuthPrefix: "",
		ExtraHeaders: map[string]string{
			"anthropic-version": "2023-06-01",
		},
		BuildBody:     buildClaudeBody,
		ParseResponse: parseClaudeResponse,
	}
}

// GeminiConfig is the text fallback behind OpenAI.
func GeminiConfig(apiKey, model string) *ProviderConfig {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	model = orDefault(model, getEnvOr("GEMINI_MODEL", "gemini-2.5-flash"))

	return &ProviderConfig{
		Name:          "gemini",
		Endpoint:      geminiBase + model + ":generateContent",
		APIKey:        apiKey,
		Model:         model,
		AuthHeader:    "x-goog-api-key",
		AuthPrefix:    "",
		BuildBody:     buildGeminiBody,
		ParseResponse: parseGeminiResponse,
	}
}

const geminiBase = "https://generativelanguage.googleapis.com/v1beta/models/"

// Body builders

func buildClaudeBody(cfg *ProviderConfig, req Request) map[string]any {
	body := map[string]any{
		"model":      cfg.Model,
		"max_tokens": maxTokensOr(req.MaxTokens, 1024),
		"messages":   []map[string]string{{"role": "user", "content": req.UserPrompt}},
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	return body
}

func buildGeminiBody(cfg *ProviderConfig, req Request) map[string]any {
	contents := []map[string]any{
		{"role": "user", "parts": []map[string]string{{"text": req.UserPrompt}}},
	}

	genCfg := map[string]any{
		"maxOutputTokens": maxTokensOr(req.MaxTokens, 1024),
	}
	if req.Temperature > 0 {
		genCfg["temperature"] = req.Temperature
	}

	body := map[string]any{
		"contents":         contents,
		"generationConfig": genCfg,
	}

	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": req.SystemPrompt}},
		}
	}

	return body
}

// Response parsers

func parseClaudeResponse(body []byte) (string, string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	var texts []string
	for _, c := range resp.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n\n"), resp.Model, nil
}

func parseGeminiResponse(body []byte) (string, string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Candidates) > 0 {
		var texts []string
		for _, p := range resp.Candidates[0].Content.Parts {
			texts = append(texts, p.Text)
		}
		return strings.Join(texts, ""), resp.ModelVersion, nil
	}
	return "", resp.ModelVersion, nil
}

// Helpers

func getEnvOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func orDefault(v, defaultVal string) string {
	if v != "" {
		return v
	}
	return defaultVal
}

func maxTokensOr(v, defaultVal int) int {
	if v > 0 {
		return v
	}
	return defaultVal
}
