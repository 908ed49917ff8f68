package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mockview/mockview/internal/ai"
	"go.uber.org/zap"
)

type stubStructuredGenerator struct {
	response    string
	err         error
	lastPrompt  string
	lastRefs    []ai.FileRef
	invocations int
}

func (s *stubStructuredGenerator) GenerateStructured(_ context.Context, prompt string, refs []ai.FileRef) (json.RawMessage, error) {
	s.invocations++
	s.lastPrompt = prompt
	s.lastRefs = refs
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.response), nil
}

type stubFileStore struct {
	uploads   []string
	deletes   []string
	uploadErr map[string]error
}

func (s *stubFileStore) UploadFile(_ context.Context, path string) (ai.FileRef, error) {
	if err, ok := s.uploadErr[path]; ok {
		return ai.FileRef{}, err
	}
	s.uploads = append(s.uploads, path)
	return ai.FileRef{
		Name:     "files/" + path,
		URI:      "uri://" + path,
		MIMEType: "audio/wav",
	}, nil
}

func (s *stubFileStore) DeleteFile(_ context.Context, name string) error {
	s.deletes = append(s.deletes, name)
	return nil
}

type mapResolver map[string]string

func (m mapResolver) Resolve(ref string) (string, bool) {
	path, ok := m[ref]
	return path, ok
}

var questionSet = []string{"q1", "q2", "q3", "q4", "q5"}

func validResponse(t *testing.T, answered ...int) string {
	t.Helper()

	set := make(map[int]bool)
	for _, p := range answered {
		set[p] = true
	}

	entries := make([]string, 0, len(questionSet))
	total := 0
	for i := range questionSet {
		if set[i+1] {
			total += 8
			entries = append(entries, fmt.Sprintf(
				`{"question": %d, "transcription": "words %d", "score": 8, "max": 10, "comment": "ok"}`, i+1, i+1))
			continue
		}
		entries = append(entries, fmt.Sprintf(
			`{"question": %d, "transcription": null, "score": 0, "max": 10, "comment": "No answer recorded."}`, i+1))
	}

	return fmt.Sprintf(
		`{"total_score": %d, "max_score": 50, "summary": "s", "strengths": ["a"], "improvements": ["b"], "feedback": [%s]}`,
		total, strings.Join(entries, ","))
}

func newComposer(gen *stubStructuredGenerator, files *stubFileStore, resolver Resolver) *Composer {
	return NewComposer(gen, files, resolver, zap.NewNop(), 0)
}

func TestEvaluatePartialAnswers(t *testing.T) {
	gen := &stubStructuredGenerator{response: validResponse(t, 1, 3)}
	files := &stubFileStore{}
	resolver := mapResolver{
		"/static/audio/a1.wav": "/tmp/a1.wav",
		"/static/audio/a3.wav": "/tmp/a3.wav",
	}

	composer := newComposer(gen, files, resolver)
	answers := []string{"/static/audio/a1.wav", "", "/static/audio/a3.wav", "", ""}

	result, err := composer.Evaluate(context.Background(), "Initech", "SDE", questionSet, answers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files.uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %v", files.uploads)
	}

	if len(gen.lastRefs) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(gen.lastRefs))
	}

	if !strings.Contains(gen.lastPrompt, "Candidate answered ONLY these questions: 1, 3") {
		t.Fatalf("expected answered positions in prompt, got: %s", gen.lastPrompt)
	}

	if !strings.Contains(gen.lastPrompt, "Q1: q1 [ANSWERED]") ||
		!strings.Contains(gen.lastPrompt, "Q2: q2 [SKIPPED]") ||
		!strings.Contains(gen.lastPrompt, "Q5: q5 [SKIPPED]") {
		t.Fatalf("expected per-question tags in prompt, got: %s", gen.lastPrompt)
	}

	if !strings.Contains(gen.lastPrompt, "senior interviewer at Initech") {
		t.Fatalf("expected company persona in prompt")
	}

	if len(result.Feedback) != 5 {
		t.Fatalf("expected 5 feedback entries, got %d", len(result.Feedback))
	}

	for _, i := range []int{1, 3} {
		if result.Feedback[i].Transcription != nil {
			t.Fatalf("skipped question %d should have null transcription", i+1)
		}
		if result.Feedback[i].Score != 0 {
			t.Fatalf("skipped question %d should have score 0", i+1)
		}
	}

	for _, i := range []int{0, 2} {
		if result.Feedback[i].Transcription == nil {
			t.Fatalf("answered question %d should have a transcription", i+1)
		}
	}
}

func TestEvaluateCleansUpOnSuccess(t *testing.T) {
	gen := &stubStructuredGenerator{response: validResponse(t, 1)}
	files := &stubFileStore{}
	resolver := mapResolver{"ref1": "/tmp/a1.wav"}

	composer := newComposer(gen, files, resolver)
	if _, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"ref1", "", "", "", ""}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files.deletes) != 1 || files.deletes[0] != "files//tmp/a1.wav" {
		t.Fatalf("expected upload cleanup, got %v", files.deletes)
	}
}

func TestEvaluateCleansUpOnFailure(t *testing.T) {
	gen := &stubStructuredGenerator{err: errors.New("transport down")}
	files := &stubFileStore{}
	resolver := mapResolver{"ref1": "/tmp/a1.wav"}

	composer := newComposer(gen, files, resolver)
	_, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"ref1", "", "", "", ""})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}

	if len(files.deletes) != 1 {
		t.Fatalf("expected upload cleanup on failure, got %v", files.deletes)
	}
}

func TestEvaluateZeroAnswered(t *testing.T) {
	gen := &stubStructuredGenerator{response: validResponse(t)}
	files := &stubFileStore{}

	composer := newComposer(gen, files, mapResolver{})
	result, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"", "", "", "", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files.uploads) != 0 {
		t.Fatalf("expected no uploads, got %v", files.uploads)
	}

	if !strings.Contains(gen.lastPrompt, "Candidate answered ONLY these questions: NONE") {
		t.Fatalf("expected NONE marker in prompt")
	}

	if result.TotalScore != 0 {
		t.Fatalf("expected total score 0, got %v", result.TotalScore)
	}

	if len(result.Feedback) != 5 {
		t.Fatalf("expected 5 feedback entries, got %d", len(result.Feedback))
	}
}

func TestEvaluateUnresolvableAnswerIsSkipped(t *testing.T) {
	gen := &stubStructuredGenerator{response: validResponse(t)}
	files := &stubFileStore{}

	// Resolver knows nothing about the stored reference.
	composer := newComposer(gen, files, mapResolver{})
	if _, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"gone.wav", "", "", "", ""}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files.uploads) != 0 {
		t.Fatalf("expected no uploads for unresolvable audio, got %v", files.uploads)
	}

	if !strings.Contains(gen.lastPrompt, "Q1: q1 [SKIPPED]") {
		t.Fatalf("unresolvable answer should be tagged SKIPPED")
	}
}

func TestEvaluateUploadFailureIsSkipped(t *testing.T) {
	gen := &stubStructuredGenerator{response: validResponse(t, 2)}
	files := &stubFileStore{uploadErr: map[string]error{"/tmp/a1.wav": errors.New("quota")}}
	resolver := mapResolver{
		"ref1": "/tmp/a1.wav",
		"ref2": "/tmp/a2.wav",
	}

	composer := newComposer(gen, files, resolver)
	if _, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"ref1", "ref2", "", "", ""}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files.uploads) != 1 || files.uploads[0] != "/tmp/a2.wav" {
		t.Fatalf("expected only the healthy upload, got %v", files.uploads)
	}

	if !strings.Contains(gen.lastPrompt, "Candidate answered ONLY these questions: 2") {
		t.Fatalf("expected only position 2 answered, got: %s", gen.lastPrompt)
	}
}

func TestEvaluateRejectsWrongEntryCount(t *testing.T) {
	short := `{"total_score": 0, "max_score": 50, "summary": "s", "strengths": [], "improvements": [],
		"feedback": [{"question": 1, "transcription": null, "score": 0, "max": 10, "comment": "x"}]}`
	gen := &stubStructuredGenerator{response: short}

	composer := newComposer(gen, &stubFileStore{}, mapResolver{})
	_, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"", "", "", "", ""})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
}

func TestEvaluateRejectsMisnumberedFeedback(t *testing.T) {
	response := validResponse(t)
	response = strings.Replace(response, `"question": 2`, `"question": 4`, 1)
	gen := &stubStructuredGenerator{response: response}

	composer := newComposer(gen, &stubFileStore{}, mapResolver{})
	_, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"", "", "", "", ""})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
}

func TestEvaluateRejectsUnparsableResponse(t *testing.T) {
	gen := &stubStructuredGenerator{response: "I am sorry, I cannot help with that."}

	composer := newComposer(gen, &stubFileStore{}, mapResolver{})
	_, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{"", "", "", "", ""})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
}

func TestEvaluateRejectsMismatchedLengths(t *testing.T) {
	composer := newComposer(&stubStructuredGenerator{}, &stubFileStore{}, mapResolver{})
	_, err := composer.Evaluate(context.Background(), "General", "SDE", questionSet, []string{""})

	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
}
