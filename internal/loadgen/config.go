package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Subjects   int           // Number of distinct subjects
	Requests   int           // Number of recommendation requests
	RepeatEach int           // Every RepeatEach-th request replays the previous idempotency key; 0 disables
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated requests
	LogFile    string        // Log file for run output
	Verbose    bool
}

// Request is one generated recommendation request.
type Request struct {
	Subject        string `json:"subject_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Text           string `json:"text"`
	Label          string `json:"intended_emotion"`
}

// Stats holds run statistics.
type Stats struct {
	Generated        int
	Submitted        int
	Successful       int
	Duplicate        int
	NoMatch          int
	Failed           int
	SubjectsVerified int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
