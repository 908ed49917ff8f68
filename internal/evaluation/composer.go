package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mockview/mockview/internal/ai"
	"github.com/mockview/mockview/internal/util"
	"go.uber.org/zap"
)

// ErrEvaluationFailed signals that scoring did not produce a usable
// structured result. The caller's previous result, if any, must be kept.
var ErrEvaluationFailed = errors.New("evaluation failed")

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Resolver maps a stored answer reference back to a local file path.
// The second return is false when the audio is no longer resolvable, in
// which case the question counts as skipped.
type Resolver interface {
	Resolve(ref string) (string, bool)
}

// Composer assembles the scoring request for a finished (or partially
// finished) interview, invokes the reasoning service and validates the
// structured result.
type Composer struct {
	generator ai.StructuredGenerator
	files     ai.FileStore
	resolver  Resolver
	logger    *zap.Logger
	maxLogLen int
}

func NewComposer(generator ai.StructuredGenerator, files ai.FileStore, resolver Resolver, logger *zap.Logger, maxLogLength int) *Composer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Composer{
		generator: generator,
		files:     files,
		resolver:  resolver,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

type upload struct {
	position int // 1-based
	ref      ai.FileRef
}

// Evaluate scores the interview. The answers slice is parallel to
// questions; an empty entry means the question was skipped. Temporary
// uploads are released best-effort regardless of the outcome.
func (c *Composer) Evaluate(ctx context.Context, company, role string, questionSet, answers []string) (*Result, error) {
	if c.generator == nil {
		return nil, fmt.Errorf("%w: no structured generator configured", ErrEvaluationFailed)
	}

	if len(answers) != len(questionSet) {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrEvaluationFailed, len(answers), len(questionSet))
	}

	uploads := c.uploadAnswers(ctx, answers)
	defer c.cleanup(uploads)

	answered := make([]int, 0, len(uploads))
	refs := make([]ai.FileRef, 0, len(uploads))
	for _, u := range uploads {
		answered = append(answered, u.position)
		refs = append(refs, u.ref)
	}

	prompt := buildPrompt(company, role, questionSet, answered)

	c.logger.Debug("evaluation request",
		zap.Ints("answered_positions", answered),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateStructured(ctx, prompt, refs)
	if err != nil {
		return nil, fmt.Errorf("%w: score request: %v", ErrEvaluationFailed, err)
	}

	c.logger.Debug("evaluation response",
		zap.Int("response_length", len(raw)),
		zap.String("response_preview", util.TruncateForLog(string(raw), c.maxLogLen)),
	)

	result, err := parseResult(raw, len(questionSet))
	if err != nil {
		return nil, err
	}

	return result, nil
}

// uploadAnswers pushes every resolvable recorded answer to the reasoning
// service. Unresolvable audio and failed uploads demote the question to
// skipped rather than failing the evaluation.
func (c *Composer) uploadAnswers(ctx context.Context, answers []string) []upload {
	var uploads []upload
	if c.files == nil {
		return uploads
	}

	for i, answer := range answers {
		if strings.TrimSpace(answer) == "" {
			continue
		}

		path := answer
		if c.resolver != nil {
			resolved, ok := c.resolver.Resolve(answer)
			if !ok {
				c.logger.Warn("answer audio is no longer resolvable, treating as skipped",
					zap.Int("position", i+1),
					zap.String("ref", answer),
				)
				continue
			}
			path = resolved
		}

		ref, err := c.files.UploadFile(ctx, path)
		if err != nil {
			c.logger.Warn("answer upload failed, treating as skipped",
				zap.Int("position", i+1),
				zap.Error(err),
			)
			continue
		}

		uploads = append(uploads, upload{position: i + 1, ref: ref})
	}

	return uploads
}

func (c *Composer) cleanup(uploads []upload) {
	if c.files == nil {
		return
	}

	// Deletion runs on a fresh context so cleanup still happens when the
	// request context was cancelled.
	ctx := context.Background()
	for _, u := range uploads {
		if err := c.files.DeleteFile(ctx, u.ref.Name); err != nil {
			c.logger.Warn("releasing uploaded answer failed",
				zap.String("file_name", u.ref.Name),
				zap.Error(err),
			)
		}
	}
}

func buildPrompt(company, role string, questionSet []string, answered []int) string {
	answeredSet := make(map[int]bool, len(answered))
	positions := make([]string, 0, len(answered))
	for _, p := range answered {
		answeredSet[p] = true
		positions = append(positions, strconv.Itoa(p))
	}

	answeredList := "NONE"
	if len(positions) > 0 {
		answeredList = strings.Join(positions, ", ")
	}

	var questionsBlock strings.Builder
	for i, question := range questionSet {
		status := "SKIPPED"
		if answeredSet[i+1] {
			status = "ANSWERED"
		}
		fmt.Fprintf(&questionsBlock, "Q%d: %s [%s]\n", i+1, question, status)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{COMPANY}}", company)
	prompt = strings.ReplaceAll(prompt, "{{ROLE}}", role)
	prompt = strings.ReplaceAll(prompt, "{{ANSWERED}}", answeredList)
	prompt = strings.ReplaceAll(prompt, "{{QUESTIONS}}", questionsBlock.String())
	prompt = strings.ReplaceAll(prompt, "{{COUNT}}", strconv.Itoa(len(questionSet)))
	return prompt
}

// parseResult validates the structured response. A response that fails to
// parse, has the wrong number of feedback entries, or numbers its entries
// out of order is rejected wholesale; no partial result is ever returned.
func parseResult(raw json.RawMessage, want int) (*Result, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrEvaluationFailed, err)
	}

	if len(result.Feedback) != want {
		return nil, fmt.Errorf("%w: expected %d feedback entries, got %d", ErrEvaluationFailed, want, len(result.Feedback))
	}

	for i, entry := range result.Feedback {
		if entry.Question != i+1 {
			return nil, fmt.Errorf("%w: feedback entry %d refers to question %d", ErrEvaluationFailed, i+1, entry.Question)
		}
	}

	return &result, nil
}
