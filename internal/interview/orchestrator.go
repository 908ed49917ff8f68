package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/metrics"
	"github.com/mockview/mockview/internal/narration"
	"github.com/mockview/mockview/internal/resume"
	"go.uber.org/zap"
)

// QuestionBuilder produces the interview question set. It never fails;
// implementations degrade to a default set.
type QuestionBuilder interface {
	Build(ctx context.Context, resumeText, role, company string) []string
}

// Narrator renders questions as audio clips, one clip per question.
type Narrator interface {
	Narrate(ctx context.Context, userID string, questions []string) []narration.Clip
}

// Evaluator scores an interview from its questions and recorded answers.
type Evaluator interface {
	Evaluate(ctx context.Context, company, role string, questionSet, answers []string) (*evaluation.Result, error)
}

// Deps aggregates the orchestrator's collaborators.
type Deps struct {
	Store     Store
	Extractor resume.Extractor
	Questions QuestionBuilder
	Narrator  Narrator
	Evaluator Evaluator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Orchestrator drives a user's progress through a fixed-length interview:
// registration, navigation, answer recording and final evaluation. State
// is mutated only after the relevant external call has resolved, so every
// operation leaves the session in its last good state on failure.
type Orchestrator struct {
	store     Store
	extractor resume.Extractor
	questions QuestionBuilder
	narrator  Narrator
	evaluator Evaluator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("resume extractor is required")
	}
	if deps.Questions == nil {
		return nil, errors.New("question builder is required")
	}
	if deps.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		store:     deps.Store,
		extractor: deps.Extractor,
		questions: deps.Questions,
		narrator:  deps.Narrator,
		evaluator: deps.Evaluator,
		metrics:   deps.Metrics,
		logger:    logger,
	}, nil
}

// Register creates a fresh session for the user, replacing any prior one.
// Extraction failure aborts registration and leaves an existing session
// untouched. Narration failures never block registration.
func (o *Orchestrator) Register(ctx context.Context, userID string, user UserInfo, doc io.ReaderAt, size int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}

	text, err := o.extractor.Extract(ctx, doc, size)
	if err != nil {
		return fmt.Errorf("extract resume text: %w", err)
	}

	questionSet := o.questions.Build(ctx, text, user.Role, user.Company)

	var clips []narration.Clip
	if o.narrator != nil {
		clips = o.narrator.Narrate(ctx, userID, questionSet)
	}

	session := NewSession(user, questionSet, clips)
	o.store.Put(userID, session)
	o.metrics.SessionStarted()

	fields := append(
		logger.StringFields(map[string]string{
			"role":    user.Role,
			"company": session.User().Company,
		}),
		zap.String(logger.FieldUser, userID),
	)
	o.logger.Info("interview session registered", fields...)

	return nil
}

// Current returns a snapshot of the user's active question slot.
func (o *Orchestrator) Current(userID string) (Snapshot, error) {
	session, ok := o.store.Get(userID)
	if !ok {
		return Snapshot{}, ErrNoActiveSession
	}
	return session.Current(), nil
}

// RecordAnswer stores the answer reference at the current position.
// Re-answering overwrites; the cursor does not move.
func (o *Orchestrator) RecordAnswer(userID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("answer reference is required")
	}

	session, ok := o.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}

	session.RecordAnswer(ref)
	o.metrics.AnswerRecorded()
	return nil
}

// Advance moves to the next question, saturating at the last one.
func (o *Orchestrator) Advance(userID string) error {
	session, ok := o.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}
	session.Advance()
	return nil
}

// Retreat moves to the previous question, saturating at the first one.
func (o *Orchestrator) Retreat(userID string) error {
	session, ok := o.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}
	session.Retreat()
	return nil
}

// Finalize evaluates the interview with the latest answers. On success the
// stored result is replaced; on failure the previous result, if any, is
// retained and the failure surfaced. A result computed for a session that
// was replaced by a concurrent Register is discarded. The replacement
// check is best effort: a Register landing after the check can at worst
// see the result attached to the session object it already unlinked from
// the store, never to the session it installed.
func (o *Orchestrator) Finalize(ctx context.Context, userID string) error {
	session, ok := o.store.Get(userID)
	if !ok {
		return ErrNoActiveSession
	}

	user := session.User()
	questionSet, answers := session.EvaluationInput()

	result, err := o.evaluator.Evaluate(ctx, user.Company, user.Role, questionSet, answers)
	if err != nil {
		o.metrics.EvaluationFailed()
		return fmt.Errorf("evaluate interview: %w", err)
	}

	if current, ok := o.store.Get(userID); !ok || current != session {
		o.logger.Warn("discarding evaluation for replaced session",
			zap.String(logger.FieldUser, userID),
		)
		return nil
	}

	session.SetResult(result)
	o.metrics.EvaluationCompleted()

	o.logger.Info("interview evaluated",
		zap.String(logger.FieldUser, userID),
		zap.Float64("total_score", result.TotalScore),
		zap.Float64("max_score", result.MaxScore),
	)

	return nil
}

// Result returns the stored evaluation result.
func (o *Orchestrator) Result(userID string) (*evaluation.Result, error) {
	session, ok := o.store.Get(userID)
	if !ok {
		return nil, ErrNoActiveSession
	}

	result, ok := session.Result()
	if !ok {
		return nil, ErrResultNotReady
	}

	return result, nil
}
