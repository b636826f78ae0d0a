package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/tobin4900/ai-resume-matcher/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, systemInstruction, message string) (string, error)
}

//go:embed system.md
var systemInstruction string

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxResumeRunes      = 30000
	maxJobRunes         = 10000
)

// Analyzer asks Gemini to compare a résumé with a job description.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAnalyzer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) (string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return "", errors.New("resume text is required")
	}

	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return "", errors.New("job description is required")
	}

	prompt := buildPrompt(truncateRunes(resumeText, maxResumeRunes), truncateRunes(jobDescription, maxJobRunes))

	a.logger.Debug("gemini generate content request",
		zap.Int("resume_length", utf8.RuneCountInString(resumeText)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return strings.TrimSpace(raw), nil
}

func buildPrompt(resumeText, jobDescription string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME}}\n\nJob Description:\n{{JOB_DESCRIPTION}}\n"
	}

	return strings.NewReplacer(
		"{{RESUME}}", resumeText,
		"{{JOB_DESCRIPTION}}", jobDescription,
	).Replace(template)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
