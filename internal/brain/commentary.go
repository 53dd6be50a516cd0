package brain

import (
	"context"

	"github.com/abelbrown/reactions/internal/model"
)

// Commentator writes cross-source commentary and narrates it.
type Commentator struct {
	text   *Chain[Request, Response]
	speech *Chain[SpeechRequest, Audio]
}

// NewCommentator builds a Commentator. speech may be nil to skip narration.
func NewCommentator(text *Chain[Request, Response], speech *Chain[SpeechRequest, Audio]) *Commentator {
	return &Commentator{text: text, speech: speech}
}

// Write generates commentary text. A failed Outcome carries the reason.
func (c *Commentator) Write(ctx context.Context, article model.Article, web []model.Candidate, reddit []model.RankedCandidate) Outcome[Response] {
	return c.text.Run(ctx, BuildCommentaryPrompt(article, web, reddit))
}

// Narrate renders text to audio.
func (c *Commentator) Narrate(ctx context.Context, text string) Outcome[Audio] {
	if c.speech == nil {
		reason := "no speech generation provider configured"
		return Outcome[Audio]{Err: ErrAllFailed, Reason: reason}
	}
	return c.speech.Run(ctx, SpeechRequest{Text: text})
}
