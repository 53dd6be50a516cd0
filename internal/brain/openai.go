package brain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/provider"
)

// Compile-time interface satisfaction checks
var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Speaker  = (*OpenAISpeaker)(nil)
)

// OpenAIOptions configures the OpenAI text and speech providers.
type OpenAIOptions struct {
	APIKey  string
	Model   string // chat model, default gpt-4o
	BaseURL string // tests
	Client  *http.Client
}

func newOpenAIClient(o OpenAIOptions) openai.Client {
	hc := o.Client
	if hc == nil {
		hc = httpclient.LongTimeout()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithHTTPClient(hc),
		// the chain is the retry policy
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	return openai.NewClient(opts...)
}

// OpenAIProvider generates text with the chat completions API.
type OpenAIProvider struct {
	client openai.Client
	apiKey string
	model  string
}

// NewOpenAIProvider creates the primary text provider.
func NewOpenAIProvider(o OpenAIOptions) *OpenAIProvider {
	return &OpenAIProvider{
		client: newOpenAIClient(o),
		apiKey: o.APIKey,
		model:  orDefault(o.Model, "gpt-4o"),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Available() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !p.Available() {
		return Response{}, provider.Unavailable("openai", "OPENAI_API_KEY not set")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:               p.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokensOr(req.MaxTokens, 1024))),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, classifyOpenAI("openai", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, provider.Failed("openai", 0, errors.New("no choices in response"))
	}

	logging.Debug("API response", "provider", "openai", "model", resp.Model, "content_len", len(resp.Choices[0].Message.Content))
	return Response{
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		RawResponse: resp.RawJSON(),
	}, nil
}

// OpenAISpeaker narrates text with the speech API (tts-1, nova, mp3).
type OpenAISpeaker struct {
	client openai.Client
	apiKey string
}

// NewOpenAISpeaker creates the speech fallback provider.
func NewOpenAISpeaker(o OpenAIOptions) *OpenAISpeaker {
	return &OpenAISpeaker{client: newOpenAIClient(o), apiKey: o.APIKey}
}

func (s *OpenAISpeaker) Name() string { return "openai-tts" }

func (s *OpenAISpeaker) Available() bool { return s.apiKey != "" }

func (s *OpenAISpeaker) Synthesize(ctx context.Context, req SpeechRequest) (Audio, error) {
	if !s.Available() {
		return Audio{}, provider.Unavailable(s.Name(), "OPENAI_API_KEY not set")
	}

	voice := openai.AudioSpeechNewParamsVoiceNova
	if req.Voice != "" {
		voice = openai.AudioSpeechNewParamsVoice(req.Voice)
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          openai.SpeechModelTTS1,
		Voice:          voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return Audio{}, classifyOpenAI(s.Name(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Audio{}, provider.Classify(s.Name(), fmt.Errorf("read audio: %w", err))
	}
	return Audio{Data: data, MimeType: "audio/mp3"}, nil
}

func classifyOpenAI(name string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return provider.Failed(name, apiErr.StatusCode, err)
	}
	return provider.Classify(name, err)
}
