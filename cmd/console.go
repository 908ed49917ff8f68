package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/interview"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/questions"
	"github.com/mockview/mockview/internal/resume"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptAttachAnswer = "Attach a recorded answer"
	PromptNextQuestion = "Next question"
	PromptPrevQuestion = "Previous question"
	PromptFinish       = "Finish and score the interview"
	PromptQuit         = "Quit without scoring"

	consoleUser = "console"
)

var questionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAttachAnswer, PromptNextQuestion, PromptPrevQuestion, PromptFinish, PromptQuit},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run a mock interview in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		console()
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// pathResolver treats answer references as plain file paths. The console
// records local recordings directly instead of going through the audio
// store.
type pathResolver struct{}

func (pathResolver) Resolve(ref string) (string, bool) {
	if _, err := os.Stat(ref); err != nil {
		return "", false
	}
	return ref, true
}

func console() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ai, aiCfg, err := newGeminiClient(ctx, config, nil, logger)
	if err != nil {
		logger.Fatal("building ai client", zap.Error(err))
	}

	interviews, err := interview.New(interview.Deps{
		Store:     interview.NewMemoryStore(),
		Extractor: resume.NewPDFExtractor(logger),
		Questions: questions.NewBuilder(ai, logger, aiCfg.MaxLogLength),
		Evaluator: evaluation.NewComposer(ai, ai, pathResolver{}, logger, aiCfg.MaxLogLength),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("building interview orchestrator", zap.Error(err))
	}

	user, resumePath, err := collectCandidate()
	if err != nil {
		logger.Fatal("collecting candidate details", zap.Error(err))
	}

	doc, err := os.Open(resumePath)
	if err != nil {
		logger.Fatal("opening resume", zap.Error(err))
	}
	defer doc.Close()

	stat, err := doc.Stat()
	if err != nil {
		logger.Fatal("reading resume size", zap.Error(err))
	}

	if err := interviews.Register(ctx, consoleUser, user, doc, stat.Size()); err != nil {
		logger.Fatal("preparing the interview", zap.Error(err))
	}

	if err := drive(ctx, interviews); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// collectCandidate gathers the candidate profile interactively.
func collectCandidate() (interview.UserInfo, string, error) {
	var user interview.UserInfo

	namePrompt := promptui.Prompt{Label: "Your name"}
	name, err := namePrompt.Run()
	if err != nil {
		return user, "", err
	}

	rolePrompt := promptui.Select{
		Label: "Target role",
		Items: questions.Roles(),
	}
	_, role, err := rolePrompt.Run()
	if err != nil {
		return user, "", err
	}

	companyPrompt := promptui.Prompt{Label: "Target company (empty for a general interview)"}
	company, err := companyPrompt.Run()
	if err != nil {
		return user, "", err
	}

	resumePrompt := promptui.Prompt{
		Label: "Path to your resume (PDF)",
		Validate: func(path string) error {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("path is required")
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read %s", path)
			}
			return nil
		},
	}
	resumePath, err := resumePrompt.Run()
	if err != nil {
		return user, "", err
	}

	user = interview.UserInfo{
		DisplayName: name,
		ExternalID:  consoleUser,
		Role:        role,
		Company:     strings.TrimSpace(company),
	}

	return user, resumePath, nil
}

// drive walks the candidate through the question list until they finish
// or quit.
func drive(ctx context.Context, interviews *interview.Orchestrator) error {
	for {
		snap, err := interviews.Current(consoleUser)
		if err != nil {
			return err
		}

		fmt.Printf("\nQuestion %d of %d: %s\n", snap.Position, snap.Total, snap.Question)
		if snap.Answers[snap.Position-1] != "" {
			fmt.Printf("(answered with %s)\n", snap.Answers[snap.Position-1])
		}

		_, action, err := questionPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptAttachAnswer:
			if err := attachAnswer(interviews); err != nil {
				return err
			}
		case PromptNextQuestion:
			if err := interviews.Advance(consoleUser); err != nil {
				return err
			}
		case PromptPrevQuestion:
			if err := interviews.Retreat(consoleUser); err != nil {
				return err
			}
		case PromptFinish:
			return finish(ctx, interviews)
		case PromptQuit:
			return nil
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func attachAnswer(interviews *interview.Orchestrator) error {
	answerPrompt := promptui.Prompt{
		Label: "Path to your recorded answer (WAV)",
		Validate: func(path string) error {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read %s", path)
			}
			return nil
		},
	}

	path, err := answerPrompt.Run()
	if err != nil {
		return err
	}

	return interviews.RecordAnswer(consoleUser, path)
}

func finish(ctx context.Context, interviews *interview.Orchestrator) error {
	fmt.Println("\nScoring the interview, this can take a while...")

	if err := interviews.Finalize(ctx, consoleUser); err != nil {
		return err
	}

	result, err := interviews.Result(consoleUser)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", pretty)
	return nil
}
