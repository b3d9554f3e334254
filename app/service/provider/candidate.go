package provider

import (
	"context"
	"fmt"
)

// Candidate is one model the dispatcher may try. Lower priority goes first.
type Candidate struct {
	Provider   string
	APIVersion string
	Model      string
	Priority   int
}

func (c Candidate) String() string {
	if c.APIVersion == "" {
		return fmt.Sprintf("%s/%s", c.Provider, c.Model)
	}
	return fmt.Sprintf("%s/%s/%s", c.Provider, c.APIVersion, c.Model)
}

// ReplyLimits are the per-provider reply cap and reported confidence.
type ReplyLimits struct {
	MaxChars   int
	Confidence float64
}

// Backend is one vendor. Generate must honour ctx and bound itself with the
// vendor's request timeout.
type Backend interface {
	Name() string
	Configured() bool
	Candidates(ctx context.Context) []Candidate
	Generate(ctx context.Context, candidate Candidate, system, user string) (string, error)
	Limits() ReplyLimits
}

// Result is a successful completion.
type Result struct {
	Text      string
	Provider  string
	Candidate Candidate
	// Attempts counts every call made, including the successful one.
	Attempts int
	// Primary is true when the very first candidate answered.
	Primary bool
	Limits  ReplyLimits
}
