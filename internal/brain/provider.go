package brain

import (
	"context"
)

// Provider is the interface for text-generation providers
type Provider interface {
	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to a text provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64 // 0 leaves the provider default
}

// Response is the provider's response
type Response struct {
	Content     string
	Model       string
	RawResponse string // The raw API response body for logging/debugging
}

// Speaker is the interface for text-to-speech providers
type Speaker interface {
	Name() string
	Available() bool
	Synthesize(ctx context.Context, req SpeechRequest) (Audio, error)
}

// SpeechRequest is the text to narrate
type SpeechRequest struct {
	Text  string
	Voice string // provider-specific; empty uses the default
}

// Audio is encoded speech
type Audio struct {
	Data     []byte
	MimeType string
}

// textStep adapts a Provider to a chain Strategy.
type textStep struct{ p Provider }

func (s textStep) Name() string    { return s.p.Name() }
func (s textStep) Available() bool { return s.p.Available() }
func (s textStep) Run(ctx context.Context, r Request) (Response, error) {
	return s.p.Generate(ctx, r)
}

// speechStep adapts a Speaker to a chain Strategy.
type speechStep struct{ s Speaker }

func (s speechStep) Name() string    { return s.s.Name() }
func (s speechStep) Available() bool { return s.s.Available() }
func (s speechStep) Run(ctx context.Context, r SpeechRequest) (Audio, error) {
	return s.s.Synthesize(ctx, r)
}

// NewTextChain orders text providers, primary first. Output is accepted only
// when non-empty and free of refusal phrases.
func NewTextChain(providers ...Provider) *Chain[Request, Response] {
	steps := make([]Strategy[Request, Response], 0, len(providers))
	for _, p := range providers {
		if p != nil {
			steps = append(steps, textStep{p})
		}
	}
	return NewChain("text", AcceptText, steps...)
}

// NewSpeechChain orders speech providers, primary first. Output is accepted
// only when it carries audio bytes.
func NewSpeechChain(speakers ...Speaker) *Chain[SpeechRequest, Audio] {
	steps := make([]Strategy[SpeechRequest, Audio], 0, len(speakers))
	for _, s := range speakers {
		if s != nil {
			steps = append(steps, speechStep{s})
		}
	}
	return NewChain("speech", AcceptAudio, steps...)
}
