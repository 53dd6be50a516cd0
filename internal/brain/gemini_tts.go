package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"google.golang.org/genai"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/provider"
)

var _ Speaker = (*GeminiSpeaker)(nil)

const (
	defaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	defaultGeminiVoice    = "Kore"
	defaultAudioMime      = "audio/mp3"

	narrationStyle = "Read the following text aloud in a natural, engaging podcast style: "
)

// GeminiSpeaker is the primary narration provider.
type GeminiSpeaker struct {
	apiKey string
	model  string
	opts   genai.HTTPOptions
	hc     *http.Client

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiSpeaker creates a Gemini TTS provider. Empty apiKey falls back to
// GEMINI_API_KEY, then GOOGLE_API_KEY.
func NewGeminiSpeaker(apiKey, model string) *GeminiSpeaker {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	return &GeminiSpeaker{
		apiKey: apiKey,
		model:  orDefault(model, defaultGeminiTTSModel),
		hc:     httpclient.LongTimeout(),
	}
}

// WithEndpoint points the SDK at a different base URL (tests).
func (g *GeminiSpeaker) WithEndpoint(baseURL string, c *http.Client) *GeminiSpeaker {
	g.opts.BaseURL = baseURL
	g.hc = c
	return g
}

func (g *GeminiSpeaker) Name() string { return "gemini-tts" }

func (g *GeminiSpeaker) Available() bool { return g.apiKey != "" }

// genaiClient builds the SDK client on first use.
func (g *GeminiSpeaker) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      g.apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  g.hc,
			HTTPOptions: g.opts,
		})
	})
	return g.client, g.initErr
}

func (g *GeminiSpeaker) Synthesize(ctx context.Context, req SpeechRequest) (Audio, error) {
	if !g.Available() {
		return Audio{}, provider.Unavailable(g.Name(), "GEMINI_API_KEY not set")
	}
	client, err := g.genaiClient(ctx)
	if err != nil {
		return Audio{}, provider.Failed(g.Name(), 0, fmt.Errorf("create client: %w", err))
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: orDefault(req.Voice, defaultGeminiVoice),
				},
			},
		},
	}
	res, err := client.Models.GenerateContent(ctx, g.model, genai.Text(narrationStyle+req.Text), cfg)
	if err != nil {
		return Audio{}, provider.Classify(g.Name(), fmt.Errorf("generate audio: %w", err))
	}
	return audioFromResponse(res)
}

// audioFromResponse returns the first inline audio part.
func audioFromResponse(res *genai.GenerateContentResponse) (Audio, error) {
	if res != nil {
		for _, c := range res.Candidates {
			if c == nil || c.Content == nil {
				continue
			}
			for _, p := range c.Content.Parts {
				if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
					continue
				}
				return Audio{Data: p.InlineData.Data, MimeType: orDefault(p.InlineData.MIMEType, defaultAudioMime)}, nil
			}
		}
	}
	return Audio{}, provider.Failed("gemini-tts", 0, errors.New("no audio in response"))
}
