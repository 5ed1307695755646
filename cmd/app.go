package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"claimassist/internal/classify"
	"claimassist/internal/config"
	"claimassist/internal/extract"
	"claimassist/internal/language"
	"claimassist/internal/llm"
	"claimassist/internal/ocr"
	"claimassist/internal/pipeline"
	"claimassist/internal/queue"
	"claimassist/internal/scoring"
	"claimassist/internal/store"
)

// appOptions selects the collaborators a command needs.
type appOptions struct {
	ocr    bool
	models bool
}

// app holds the wired services shared by the commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	queue    *queue.Queue
	pipeline *pipeline.Pipeline
	ocr      ocr.OCRService
	log      zerolog.Logger
}

func newApp(ctx context.Context, opts appOptions, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Configuration is invalid")
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open document store")
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	q, err := queue.New(ctx, st.DB(), cfg.QueueVisibilityTimeout)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}

	a := &app{cfg: cfg, store: st, queue: q, log: log}
	deps := pipeline.Deps{Records: st, Publisher: q}

	if opts.ocr {
		a.ocr, err = createOCRService(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.OCR = a.ocr
	}

	if opts.models {
		if err := wireModels(cfg, st, &deps); err != nil {
			log.Error().Err(err).Msg("Failed to configure model backends")
			a.Close()
			return nil, err
		}
	}

	a.pipeline = pipeline.New(deps)
	return a, nil
}

// Close releases the OCR client and the database.
func (a *app) Close() {
	if closer, ok := a.ocr.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close OCR service")
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close document store")
	}
}

// newRouter registers every backend whose credentials are configured.
func newRouter(cfg *config.Config) (*llm.Router, error) {
	router := llm.NewRouter()
	policy := cfg.RetryPolicy()

	if cfg.AnthropicAPIKey != "" {
		for name, model := range map[string]string{
			llm.ModelHaiku:  cfg.AnthropicHaikuModel,
			llm.ModelSonnet: cfg.AnthropicSonnetModel,
		} {
			b, err := llm.NewAnthropicBackend(name, llm.AnthropicConfig{
				APIKey:      cfg.AnthropicAPIKey,
				Model:       model,
				MaxTokens:   int64(cfg.LLMMaxTokens),
				Temperature: cfg.LLMTemperature,
			})
			if err != nil {
				return nil, err
			}
			router.Register(llm.WithRetry(b, policy))
		}
	}

	if cfg.OpenAIAPIKey != "" {
		b, err := llm.NewOpenAIBackend(llm.ModelGPT, llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: float32(cfg.LLMTemperature),
			BaseURL:     cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, err
		}
		router.Register(llm.WithRetry(b, policy))
	}

	if len(router.Names()) == 0 {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or OPENAI_API_KEY", llm.ErrMissingAPIKey)
	}
	return router, nil
}

func wireModels(cfg *config.Config, st *store.Store, deps *pipeline.Deps) error {
	router, err := newRouter(cfg)
	if err != nil {
		return err
	}

	backends := make(map[string]llm.Backend, 4)
	for _, name := range []string{cfg.ClassificationModel, cfg.ExtractionModel, cfg.ScoringModel, cfg.TranslationModel} {
		b, err := router.Select(name)
		if err != nil {
			return err
		}
		backends[name] = b
	}

	detector := language.NewLinguaDetector(cfg.DefaultLanguage)
	deps.Classifier = classify.NewDispatcher(
		detector,
		language.NewModelTranslator(backends[cfg.TranslationModel], language.WithTarget(detector.Default())),
		backends[cfg.ClassificationModel],
		pipeline.TranslationRecorder{Records: st},
		classify.WithDefaultLanguage(detector.Default()),
	)
	deps.Extractor = extract.NewService(backends[cfg.ExtractionModel], nil)
	deps.Scorer = scoring.NewService(
		scoring.NewRequester(backends[cfg.ScoringModel],
			scoring.WithBatchSize(cfg.ConfidenceBatchSize),
			scoring.WithConcurrency(cfg.ConfidenceConcurrency),
		),
		nil,
	)
	return nil
}

// createOCRService creates the configured OCR provider
func createOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.OCRService, error) {
	hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""
	if !hasCredentials {
		log.Warn().Msg("No explicit Google Cloud credentials, falling back to Application Default Credentials")
	}

	var (
		svc ocr.OCRService
		err error
	)
	switch cfg.OCRProvider {
	case config.OCRVision:
		svc, err = ocr.NewGoogleVisionOCRService(ctx)
	default:
		svc, err = ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
		})
	}
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials validation failed")
			return nil, fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n" +
				"1. Credentials file exists and is readable\n" +
				"2. JSON format is valid\n" +
				"3. Service account has proper permissions\n\n" +
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Str("provider", cfg.OCRProvider).
			Msg("Failed to create OCR service")
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	log.Debug().Str("provider", cfg.OCRProvider).Msg("OCR service created successfully")
	return svc, nil
}

// createContextWithTimeout creates a context with timeout and signal handling.
// A timeout of zero or less only cancels on a signal.
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if timeoutSecs > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
