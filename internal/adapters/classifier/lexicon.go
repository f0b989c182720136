package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/okian/moodtune/internal/domain/emotion"
)

// LexiconModelVersion identifies scores produced by the keyword classifier.
const LexiconModelVersion = "lexicon-v1"

const (
	lexiconBase       = 0.05
	lexiconNeutral    = 0.6
	lexiconHitWeight  = 0.35
	lexiconMaxScore   = 0.95
	defaultLexiconCap = 64
)

// defaultLexicon maps lowercase keywords to labels.
var defaultLexicon = map[string]string{
	"happy": emotion.Happiness, "joy": emotion.Happiness, "glad": emotion.Happiness, "great": emotion.Happiness,
	"calm": emotion.Contentment, "peaceful": emotion.Contentment, "relaxed": emotion.Contentment, "content": emotion.Contentment,
	"confident": emotion.Confidence, "strong": emotion.Confidence, "proud": emotion.Confidence,
	"sad": emotion.Sadness, "cry": emotion.Sadness, "lonely": emotion.Sadness, "down": emotion.Sadness,
	"angry": emotion.Anger, "furious": emotion.Anger, "mad": emotion.Anger, "hate": emotion.Anger,
	"afraid": emotion.Fear, "scared": emotion.Fear, "anxious": emotion.Fear, "worried": emotion.Fear,
	"surprised": emotion.Surprise, "shocked": emotion.Surprise, "unexpected": emotion.Surprise, "wow": emotion.Surprise,
	"gross": emotion.Disgust, "disgusting": emotion.Disgust, "awful": emotion.Disgust,
	"love": emotion.Love, "adore": emotion.Love, "darling": emotion.Love,
	"excited": emotion.Excitement, "thrilled": emotion.Excitement, "pumped": emotion.Excitement,
	"waiting": emotion.Anticipation, "soon": emotion.Anticipation, "tomorrow": emotion.Anticipation,
	"remember": emotion.Nostalgia, "childhood": emotion.Nostalgia, "memories": emotion.Nostalgia,
	"confused": emotion.Confusion, "unsure": emotion.Confusion, "lost": emotion.Confusion,
	"frustrated": emotion.Frustration, "stuck": emotion.Frustration, "annoyed": emotion.Frustration,
	"miss": emotion.Longing, "wish": emotion.Longing, "yearn": emotion.Longing,
	"hope": emotion.Optimism, "hopeful": emotion.Optimism, "bright": emotion.Optimism, "better": emotion.Optimism,
}

// LexiconOption configures a Lexicon.
type LexiconOption func(*Lexicon)

// WithKeywords adds or overrides keyword to label mappings. Unknown labels are
// ignored.
func WithKeywords(words map[string]string) LexiconOption {
	return func(l *Lexicon) {
		for w, label := range words {
			if emotion.IsLabel(label) {
				l.words[strings.ToLower(w)] = label
			}
		}
	}
}

// Lexicon is an in-process keyword classifier. It is deterministic and needs
// no model server, which makes it the backend for local runs and tests.
type Lexicon struct {
	words map[string]string
}

// NewLexicon creates a keyword classifier seeded with the built-in lexicon.
func NewLexicon(opts ...LexiconOption) *Lexicon {
	l := &Lexicon{words: make(map[string]string, defaultLexiconCap)}
	for w, label := range defaultLexicon {
		l.words[w] = label
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Classify implements Classifier. Each keyword hit raises its label's score;
// text without hits leans Neutral.
func (l *Lexicon) Classify(ctx context.Context, text string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	hits := make(map[string]int)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		if label, ok := l.words[tok]; ok {
			hits[label]++
		}
	}

	scores := make(map[string]float64, emotion.LabelCount())
	for _, label := range emotion.Labels() {
		scores[label] = lexiconBase
		if n := hits[label]; n > 0 {
			scores[label] = math.Min(lexiconMaxScore, lexiconBase+lexiconHitWeight*float64(n)+lexiconHitWeight)
		}
	}
	if len(hits) == 0 {
		scores[emotion.Neutral] = lexiconNeutral
	}
	return scores, nil
}

// Health implements Prober. The lexicon is always ready.
func (l *Lexicon) Health(context.Context) (string, error) {
	return LexiconModelVersion, nil
}
