package brain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/reactions/internal/model"
)

func TestParseClassification(t *testing.T) {
	content := "1 | news | Straight report of the layoffs.\n" +
		"2. | **opinion** | Columnist argues the cuts are overdue.\n" +
		"3 | gossip | not a category\n" +
		"9 | blog | out of range\n" +
		"garbage line\n"

	labels := parseClassification(content, 3)

	require.Len(t, labels, 2)
	assert.Equal(t, "news", labels[0].category)
	assert.Equal(t, "opinion", labels[1].category)
	assert.Equal(t, "Columnist argues the cuts are overdue.", labels[1].reason)
}

func TestClassifyLabelsCopy(t *testing.T) {
	p := &fakeProvider{name: "openai", available: true, content: "1 | analysis | Breaks down the numbers.\n2 | forum | Discussion board."}
	web := []model.Candidate{{Title: "A"}, {Title: "B"}}

	got := NewClassifier(NewTextChain(p)).Classify(context.Background(), web)

	require.Len(t, got, 2)
	assert.Equal(t, "analysis", got[0].Category)
	assert.Equal(t, "forum", got[1].Category)
	assert.Empty(t, web[0].Category, "input must not be mutated")
}

func TestClassifyFailureIsNonFatal(t *testing.T) {
	p := &fakeProvider{name: "openai", available: true, err: errors.New("down")}
	web := []model.Candidate{{Title: "A"}}

	got := NewClassifier(NewTextChain(p)).Classify(context.Background(), web)

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Category)
}
