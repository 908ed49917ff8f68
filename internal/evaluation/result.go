package evaluation

// Result is the structured scoring payload produced by the reasoning
// service. Numbers are taken verbatim from the response; the composer does
// not re-validate the model's arithmetic.
type Result struct {
	TotalScore   float64    `json:"total_score"`
	MaxScore     float64    `json:"max_score"`
	Summary      string     `json:"summary"`
	Strengths    []string   `json:"strengths"`
	Improvements []string   `json:"improvements"`
	Feedback     []Feedback `json:"feedback"`
}

// Feedback scores a single question. Transcription is null for skipped
// questions.
type Feedback struct {
	Question      int     `json:"question"`
	Transcription *string `json:"transcription"`
	Score         float64 `json:"score"`
	Max           float64 `json:"max"`
	Comment       string  `json:"comment"`
}
