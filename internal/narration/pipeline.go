package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/speech"
	"go.uber.org/zap"
)

// Clip is the per-question narration result. A clip is either playable via
// Ref or explicitly unavailable; unavailability is never an error, the
// front end falls back to the question text.
type Clip struct {
	Ref       string `json:"ref"`
	Available bool   `json:"available"`
}

// Unavailable is the marker clip for questions without narration.
var Unavailable = Clip{}

// Saver persists synthesized audio and hands back a playable reference.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// Pipeline narrates question sets. Every question is synthesized
// independently so a single synthesis failure only degrades its own slot.
type Pipeline struct {
	synth  speech.Synthesizer
	saver  Saver
	logger *zap.Logger
}

func NewPipeline(synth speech.Synthesizer, saver Saver, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		synth:  synth,
		saver:  saver,
		logger: logger,
	}
}

// Narrate converts each question to audio. The returned slice always has
// one clip per question, in order. File names carry the user id, ordinal
// position and a random suffix so sessions created at different times for
// the same user never collide.
func (p *Pipeline) Narrate(ctx context.Context, userID string, questions []string) []Clip {
	clips := make([]Clip, len(questions))
	for i, question := range questions {
		clips[i] = p.narrateOne(ctx, userID, i, question)
	}
	return clips
}

func (p *Pipeline) narrateOne(ctx context.Context, userID string, position int, question string) Clip {
	if p.synth == nil || p.saver == nil {
		return Unavailable
	}

	data, err := p.synth.Synthesize(ctx, question)
	if err != nil {
		if errors.Is(err, speech.ErrUnavailable) {
			p.logger.Debug("narration unavailable",
				zap.String(logger.FieldUser, userID),
				zap.Int("position", position),
			)
		} else {
			p.logger.Warn("narration failed",
				zap.String(logger.FieldUser, userID),
				zap.Int("position", position),
				zap.Error(err),
			)
		}
		return Unavailable
	}

	name := fmt.Sprintf("q_%s_%d_%s.wav", userID, position, uuid.NewString())
	ref, err := p.saver.Save(name, data)
	if err != nil {
		p.logger.Warn("saving narration failed",
			zap.String(logger.FieldUser, userID),
			zap.Int("position", position),
			zap.Error(err),
		)
		return Unavailable
	}

	return Clip{Ref: ref, Available: true}
}
