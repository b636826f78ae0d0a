package ai

import "context"

// Analyzer compares a résumé with a job description and returns the
// provider's free-form analysis text.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (string, error)
}
