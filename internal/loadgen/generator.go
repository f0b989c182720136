package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/pkg/logger"
)

// phrases holds a few sentences per label, built from words the lexicon
// classifier recognises.
var phrases = map[string][]string{
	emotion.Happiness:    {"I am so happy today", "What a glad and great morning"},
	emotion.Contentment:  {"Feeling calm and relaxed on the porch", "A peaceful, content evening"},
	emotion.Confidence:   {"I feel strong and confident", "Proud of what I built"},
	emotion.Sadness:      {"I feel sad and lonely tonight", "Want to cry, everything is down"},
	emotion.Anger:        {"I am furious and angry", "I hate this traffic, so mad"},
	emotion.Fear:         {"I am scared and anxious", "Worried and afraid of tomorrow's exam"},
	emotion.Surprise:     {"Wow, that was unexpected", "Totally shocked and surprised"},
	emotion.Disgust:      {"That food was gross and awful", "Disgusting behaviour"},
	emotion.Love:         {"I love you, darling", "I adore my family"},
	emotion.Excitement:   {"So excited and pumped for the trip", "Thrilled about the concert"},
	emotion.Anticipation: {"Waiting for the results, coming soon", "Tomorrow is the big day"},
	emotion.Nostalgia:    {"I remember my childhood summers", "Old memories of school"},
	emotion.Confusion:    {"I am confused and unsure", "Totally lost in this city"},
	emotion.Frustration:  {"So frustrated and stuck on this bug", "Annoyed at the delays"},
	emotion.Longing:      {"I miss you and wish you were here", "I yearn for home"},
	emotion.Optimism:     {"Hopeful that things will get better", "A bright future ahead, I hope"},
	emotion.Neutral:      {"The meeting is at noon", "I bought groceries"},
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateRequests creates cfg.Requests requests spread round-robin over
// cfg.Subjects subjects. Every RepeatEach-th request reuses the key and body
// of the request before it, so the service must reject it as a duplicate.
func generateRequests(ctx context.Context, cfg *Config, stats *Stats) ([]Request, error) {
	if cfg.Requests <= 0 || cfg.Subjects <= 0 {
		return nil, fmt.Errorf("requests and subjects must be positive")
	}
	logger.Get().Info(ctx, "generating requests",
		logger.Int("requests", cfg.Requests),
		logger.Int("subjects", cfg.Subjects))

	subjects := make([]string, cfg.Subjects)
	for i := range subjects {
		subjects[i] = "load-" + uuid.NewString()
	}
	labels := emotion.Labels()

	reqs := make([]Request, 0, cfg.Requests)
	for i := 0; i < cfg.Requests; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		if cfg.RepeatEach > 0 && i > 0 && i%cfg.RepeatEach == 0 {
			reqs = append(reqs, reqs[i-1])
			continue
		}
		label := labels[randomIndex(len(labels))]
		options := phrases[label]
		reqs = append(reqs, Request{
			Subject:        subjects[i%len(subjects)],
			IdempotencyKey: uuid.NewString(),
			Text:           options[randomIndex(len(options))],
			Label:          label,
		})
	}

	stats.Generated = len(reqs)
	return reqs, nil
}
