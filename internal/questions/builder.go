package questions

import (
	"context"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mockview/mockview/internal/ai"
	"github.com/mockview/mockview/internal/util"
	"go.uber.org/zap"
)

// Count is the fixed number of questions in every interview.
const Count = 5

//go:embed prompt.md
var promptTemplate string

//go:embed company_prompt.md
var companyTemplate string

const defaultMaxLogLength = 200

var roleTitles = map[string]string{
	"SDE":          "Software Engineer",
	"DevOps":       "DevOps Engineer",
	"HR":           "HR Manager",
	"Marketing":    "Marketing Specialist",
	"Product":      "Product Manager",
	"Data Science": "Data Scientist",
}

const fallbackRoleTitle = "Tech"

var defaultSet = [Count]string{
	"Tell me about yourself.",
	"Why do you want to work here?",
	"What is your biggest strength?",
	"Describe a challenge you faced.",
	"Where do you see yourself in 5 years?",
}

// Builder turns resume text and a target role into a set of exactly Count
// interview questions. It degrades to a built-in default set whenever the
// reasoning service fails or returns unusable output, so Build never
// fails the caller.
type Builder struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewBuilder(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Builder {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// DefaultSet returns a copy of the built-in fallback question set.
func DefaultSet() []string {
	set := make([]string, Count)
	copy(set, defaultSet[:])
	return set
}

// RoleTitle maps a role code to a human-readable title. Unknown codes get
// a generic fallback.
func RoleTitle(role string) string {
	if title, ok := roleTitles[role]; ok {
		return title
	}
	return fallbackRoleTitle
}

// Roles lists the known role codes.
func Roles() []string {
	return []string{"SDE", "DevOps", "HR", "Marketing", "Product", "Data Science"}
}

// Build generates the question set for the given resume and role. The
// company is optional; when present the prompt asks for real
// company-specific questions.
func (b *Builder) Build(ctx context.Context, resumeText, role, company string) []string {
	prompt := buildPrompt(resumeText, role, company)

	b.logger.Debug("question generation request",
		zap.String("role", role),
		zap.String("company", company),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, b.maxLogLen)),
	)

	if b.generator == nil {
		b.logger.Warn("no question generator configured, using default set")
		return DefaultSet()
	}

	raw, err := b.generator.GenerateContent(ctx, prompt)
	if err != nil {
		b.logger.Warn("question generation failed, using default set", zap.Error(err))
		return DefaultSet()
	}

	b.logger.Debug("question generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, b.maxLogLen)),
	)

	parsed := parseLines(raw)
	if len(parsed) == 0 {
		b.logger.Warn("question generation returned no usable lines, using default set")
		return DefaultSet()
	}

	// The session invariant requires exactly Count questions. Top up short
	// responses from the default set.
	for i := len(parsed); i < Count; i++ {
		parsed = append(parsed, defaultSet[i])
	}

	return parsed
}

func buildPrompt(resumeText, role, company string) string {
	companySection := ""
	if company = strings.TrimSpace(company); company != "" {
		companySection = strings.ReplaceAll(companyTemplate, "{{COMPANY}}", company)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{ROLE}}", RoleTitle(role))
	prompt = strings.ReplaceAll(prompt, "{{RESUME}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{COMPANY_SECTION}}", companySection)
	return prompt
}

// parseLines interprets raw model output as newline-separated questions.
// Empty lines and meta-commentary lines starting with "Note" are dropped,
// and the result is truncated to Count entries. Fewer than Count usable
// lines is allowed; zero lines signals the caller to fall back.
func parseLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Note") {
			continue
		}
		out = append(out, line)
		if len(out) == Count {
			break
		}
	}
	return out
}
