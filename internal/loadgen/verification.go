package loadgen

import (
	"context"
	"fmt"
	"strconv"

	"github.com/okian/moodtune/pkg/logger"
)

type historyStats struct {
	TotalMatches int `json:"total_recommendations"`
}

type catalogStats struct {
	TotalMatches int `json:"total_matches"`
}

// verifyResults checks every subject's history against what was accepted, and
// that the catalog counted at least as many matches.
func verifyResults(ctx context.Context, cfg *Config, perSubject map[string]int, stats *Stats) error {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "verifying results", logger.Int("subjects", len(perSubject)))

	client := newHTTPClient(cfg)
	path := "/v1/history/stats?days=" + strconv.Itoa(historyWindowDays)

	var mismatches int
	for subject, want := range perSubject {
		var got historyStats
		status, err := client.Get(ctx, path, subject, &got)
		if err != nil || status != StatusOK {
			return fmt.Errorf("history stats for %s: status %d: %v", subject, status, err)
		}
		if got.TotalMatches != want {
			mismatches++
			log.Warn(ctx, "history mismatch",
				logger.String("subject", subject),
				logger.Int("expected", want),
				logger.Int("actual", got.TotalMatches))
			continue
		}
		stats.SubjectsVerified++
	}

	var cat catalogStats
	status, err := client.Get(ctx, "/v1/catalog/stats", "", &cat)
	if err != nil || status != StatusOK {
		return fmt.Errorf("catalog stats: status %d: %v", status, err)
	}
	if cat.TotalMatches < stats.Successful {
		return fmt.Errorf("catalog counted %d matches, expected at least %d", cat.TotalMatches, stats.Successful)
	}

	if mismatches > 0 {
		return fmt.Errorf("%d subjects have inconsistent history", mismatches)
	}
	log.Info(ctx, "results verified", logger.Int("subjects", stats.SubjectsVerified))
	return nil
}
