package models

import "time"

// ReviewRecord is one expert's row in the review table.
type ReviewRecord struct {
	ExpertName        string `json:"expert_name"`
	ReviewTime        string `json:"review_time"`
	OverallEvaluation string `json:"overall_evaluation"`
	ReviewResult      string `json:"review_result"`
}

// Snapshot is the result set extracted in one poll cycle.
//
// A nil *Snapshot means extraction failed. Reviews keep table row order,
// which is significant: notifications number experts by position.
type Snapshot struct {
	Reviews     []ReviewRecord `json:"reviews"`
	FinalResult string         `json:"final_result"`
	ExtractTime time.Time      `json:"extract_time"`
}

// State is the durable record kept between runs.
type State struct {
	Results *Snapshot `json:"results"`
	Hash    string    `json:"hash"`
}

// PageState describes where the browser ended up after navigating.
type PageState int

const (
	PageFailed PageState = iota
	PageOnTarget
	PageNeedsLogin
)

func (s PageState) String() string {
	switch s {
	case PageOnTarget:
		return "on_target"
	case PageNeedsLogin:
		return "needs_login"
	default:
		return "failed"
	}
}

// Credentials for the portal login form. Either field may be empty.
type Credentials struct {
	Account  string
	Password string
}
