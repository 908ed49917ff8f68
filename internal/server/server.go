package server

import (
	"context"
	"io"
	"net/http"

	"github.com/mockview/mockview/internal/accounts"
	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/interview"
	"github.com/mockview/mockview/internal/metrics"
	"go.uber.org/zap"
)

// Interviewer is the orchestrator boundary consumed by the HTTP layer.
type Interviewer interface {
	Register(ctx context.Context, userID string, user interview.UserInfo, doc io.ReaderAt, size int64) error
	Current(userID string) (interview.Snapshot, error)
	RecordAnswer(userID, ref string) error
	Advance(userID string) error
	Retreat(userID string) error
	Finalize(ctx context.Context, userID string) error
	Result(userID string) (*evaluation.Result, error)
}

// Directory is the account collaborator consumed by the HTTP layer.
type Directory interface {
	Authenticate(ctx context.Context, email, password string) (*accounts.User, error)
	CreateAccount(ctx context.Context, name, email, password string) (int64, error)
}

// AnswerSaver persists recorded answer audio and returns its reference.
type AnswerSaver interface {
	Save(name string, data []byte) (string, error)
}

// Server is the thin JSON/multipart transport in front of the interview
// orchestrator. All interview state lives behind the Interviewer; the
// server only resolves identities and shuttles bytes.
type Server struct {
	interviews Interviewer
	directory  Directory
	answers    AnswerSaver
	audioDir   string
	metrics    *metrics.Metrics
	logger     *zap.Logger
	tokens     *tokenStore
}

type Deps struct {
	Interviews Interviewer
	Directory  Directory
	Answers    AnswerSaver
	AudioDir   string
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		interviews: deps.Interviews,
		directory:  deps.Directory,
		answers:    deps.Answers,
		audioDir:   deps.AudioDir,
		metrics:    deps.Metrics,
		logger:     logger,
		tokens:     newTokenStore(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.withUser(s.handleLogout))

	mux.HandleFunc("POST /api/register", s.withUser(s.handleRegister))
	mux.HandleFunc("GET /api/question", s.withUser(s.handleQuestion))
	mux.HandleFunc("POST /api/submit", s.withUser(s.handleSubmit))
	mux.HandleFunc("POST /api/next", s.withUser(s.handleNext))
	mux.HandleFunc("POST /api/prev", s.withUser(s.handlePrev))
	mux.HandleFunc("POST /api/submit_all", s.withUser(s.handleSubmitAll))
	mux.HandleFunc("GET /api/result", s.withUser(s.handleResult))

	mux.HandleFunc("GET /api/stats", s.handleStats)

	if s.audioDir != "" {
		mux.Handle("GET /static/audio/",
			http.StripPrefix("/static/audio/", http.FileServer(http.Dir(s.audioDir))))
	}

	return mux
}
