package interview

import (
	"strings"
	"sync"

	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/narration"
)

// QuestionCount is the fixed interview length. Questions, narration clips
// and answer slots are always index-aligned sequences of this length.
const QuestionCount = 5

// DefaultCompany is used when registration does not name a target company.
const DefaultCompany = "General"

// UserInfo describes the interviewee as captured at registration.
type UserInfo struct {
	DisplayName string `json:"name"`
	ExternalID  string `json:"uid"`
	Role        string `json:"role"`
	Company     string `json:"company"`
}

// Session is the per-user in-memory record of an interview in progress.
// All accessors lock, so operations for the same user are serialized even
// under concurrent callers.
type Session struct {
	mu        sync.Mutex
	user      UserInfo
	questions [QuestionCount]string
	clips     [QuestionCount]narration.Clip
	answers   [QuestionCount]string
	current   int
	result    *evaluation.Result
}

// Snapshot is a read of the active question slot.
type Snapshot struct {
	Question string
	Audio    narration.Clip
	// Position is 1-based for presentation.
	Position int
	Total    int
	User     UserInfo
	Answers  []string
}

// NewSession creates a session positioned at the first question with all
// answer slots empty. The question and clip slices are normalized to
// QuestionCount entries.
func NewSession(user UserInfo, questionSet []string, clips []narration.Clip) *Session {
	if strings.TrimSpace(user.Company) == "" {
		user.Company = DefaultCompany
	}

	s := &Session{user: user}
	copy(s.questions[:], questionSet)
	copy(s.clips[:], clips)
	return s
}

// User returns the registration info.
func (s *Session) User() UserInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Current returns a snapshot of the active slot.
func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]string, QuestionCount)
	copy(answers, s.answers[:])

	return Snapshot{
		Question: s.questions[s.current],
		Audio:    s.clips[s.current],
		Position: s.current + 1,
		Total:    QuestionCount,
		User:     s.user,
		Answers:  answers,
	}
}

// RecordAnswer stores the answer reference at the current position,
// overwriting any prior answer there. The cursor does not move.
func (s *Session) RecordAnswer(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[s.current] = ref
}

// Advance moves the cursor forward, saturating at the last question.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < QuestionCount-1 {
		s.current++
	}
}

// Retreat moves the cursor backward, saturating at the first question.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
}

// EvaluationInput copies the questions and answers for scoring so the
// evaluation sees a consistent view even if the user keeps navigating.
func (s *Session) EvaluationInput() (questionSet, answers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questionSet = make([]string, QuestionCount)
	copy(questionSet, s.questions[:])
	answers = make([]string, QuestionCount)
	copy(answers, s.answers[:])
	return questionSet, answers
}

// SetResult stores a successful evaluation, replacing any earlier one.
func (s *Session) SetResult(result *evaluation.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// Result returns the stored evaluation, if any.
func (s *Session) Result() (*evaluation.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}
