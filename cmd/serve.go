package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mockview/mockview/internal/accounts"
	"github.com/mockview/mockview/internal/audio"
	"github.com/mockview/mockview/internal/evaluation"
	"github.com/mockview/mockview/internal/interview"
	"github.com/mockview/mockview/internal/logger"
	"github.com/mockview/mockview/internal/metrics"
	"github.com/mockview/mockview/internal/narration"
	"github.com/mockview/mockview/internal/questions"
	"github.com/mockview/mockview/internal/resume"
	"github.com/mockview/mockview/internal/server"
	"github.com/mockview/mockview/internal/speech"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mockview HTTP server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen-addr", "l", "", "address to listen on")

	viper.BindPFlag("listen-addr", serveCmd.Flags().Lookup("listen-addr"))
}

func serve() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting mockview", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	counters := metrics.New()

	ai, aiCfg, err := newGeminiClient(ctx, config, counters, logger)
	if err != nil {
		logger.Fatal("building ai client", zap.Error(err))
	}

	store, err := audio.NewStore(viper.GetString("audio-dir"))
	if err != nil {
		logger.Fatal("preparing audio directory", zap.Error(err))
	}

	var narrator interview.Narrator
	if config.Speech != nil && config.Speech.URL != "" {
		synth := speech.New(config.Speech.URL, config.Speech.Voice, logger)
		narrator = narration.NewPipeline(synth, store, logger)
		logger.Info("question narration enabled", zap.String("speech_url", config.Speech.URL))
	} else {
		logger.Info("question narration disabled", zap.String("reason", "no speech.url configured"))
	}

	directory, err := accounts.Open(viper.GetString("accounts-db"))
	if err != nil {
		logger.Fatal("opening accounts database", zap.Error(err))
	}
	defer directory.Close()

	interviews, err := interview.New(interview.Deps{
		Store:     interview.NewMemoryStore(),
		Extractor: resume.NewPDFExtractor(logger),
		Questions: questions.NewBuilder(ai, logger, aiCfg.MaxLogLength),
		Narrator:  narrator,
		Evaluator: evaluation.NewComposer(ai, ai, store, logger, aiCfg.MaxLogLength),
		Metrics:   counters,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("building interview orchestrator", zap.Error(err))
	}

	srv := server.New(server.Deps{
		Interviews: interviews,
		Directory:  directory,
		Answers:    store,
		AudioDir:   store.Dir(),
		Metrics:    counters,
		Logger:     logger,
	})

	addr := viper.GetString("listen-addr")
	logger.Info("listening", zap.String("addr", addr))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
}
