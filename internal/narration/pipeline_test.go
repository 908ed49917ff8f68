package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mockview/mockview/internal/speech"
	"go.uber.org/zap"
)

type stubSynth struct {
	failOn map[string]error
	calls  int
}

func (s *stubSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.calls++
	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	return []byte("audio:" + text), nil
}

type stubSaver struct {
	saved map[string][]byte
	err   error
}

func (s *stubSaver) Save(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = data
	return "/static/audio/" + name, nil
}

func TestNarrateAllAvailable(t *testing.T) {
	synth := &stubSynth{}
	saver := &stubSaver{}
	pipeline := NewPipeline(synth, saver, zap.NewNop())

	questions := []string{"one", "two", "three", "four", "five"}
	clips := pipeline.Narrate(context.Background(), "u1", questions)

	if len(clips) != len(questions) {
		t.Fatalf("expected %d clips, got %d", len(questions), len(clips))
	}

	for i, clip := range clips {
		if !clip.Available {
			t.Fatalf("clip %d should be available", i)
		}
		if !strings.Contains(clip.Ref, fmt.Sprintf("q_u1_%d_", i)) {
			t.Fatalf("clip %d has unexpected ref %q", i, clip.Ref)
		}
	}
}

func TestNarrateDegradesPerQuestion(t *testing.T) {
	synth := &stubSynth{failOn: map[string]error{
		"two": speech.ErrUnavailable,
	}}
	pipeline := NewPipeline(synth, &stubSaver{}, zap.NewNop())

	clips := pipeline.Narrate(context.Background(), "u1", []string{"one", "two", "three"})

	if !clips[0].Available || !clips[2].Available {
		t.Fatal("healthy questions should still be narrated")
	}

	if clips[1].Available || clips[1].Ref != "" {
		t.Fatalf("failed question should be unavailable, got %+v", clips[1])
	}
}

func TestNarrateSaverFailure(t *testing.T) {
	pipeline := NewPipeline(&stubSynth{}, &stubSaver{err: errors.New("disk full")}, zap.NewNop())

	clips := pipeline.Narrate(context.Background(), "u1", []string{"one"})

	if clips[0].Available {
		t.Fatal("clip should be unavailable when saving fails")
	}
}

func TestNarrateUniqueNamesAcrossRuns(t *testing.T) {
	saver := &stubSaver{}
	pipeline := NewPipeline(&stubSynth{}, saver, zap.NewNop())

	pipeline.Narrate(context.Background(), "u1", []string{"one"})
	pipeline.Narrate(context.Background(), "u1", []string{"one"})

	if len(saver.saved) != 2 {
		t.Fatalf("expected 2 distinct files, got %d", len(saver.saved))
	}
}
