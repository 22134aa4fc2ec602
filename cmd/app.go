package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/photo-library/internal/caption"
	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/database/postgres"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
	"github.com/kozaktomas/photo-library/internal/faces"
	"github.com/kozaktomas/photo-library/internal/geocode"
	"github.com/kozaktomas/photo-library/internal/inference"
	"github.com/kozaktomas/photo-library/internal/jobs"
	"github.com/kozaktomas/photo-library/internal/pipeline"
	"github.com/kozaktomas/photo-library/internal/scanner"
	"github.com/kozaktomas/photo-library/internal/similarity"
	"github.com/kozaktomas/photo-library/internal/thumbnails"
)

// app wires the full enrichment stack for CLI commands. Collaborators that
// need external tooling (exiftool, inference services) degrade to nil and
// their pipeline steps are skipped with a warning.
type app struct {
	cfg    *config.Config
	store  *postgres.Store
	logger *slog.Logger

	jobs     *jobs.Controller
	thumbs   *thumbnails.Engine
	index    *similarity.Engine
	exif     *exifmeta.Reader
	embed    *inference.EmbeddingClient
	identity *faces.Identity
	pipe     *pipeline.Pipeline
	scan     *scanner.Scanner
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		logger: logger,
		jobs:   jobs.NewController(store, logger),
		thumbs: thumbnails.New(cfg.Data.Root, logger),
		index:  similarity.NewEngine(cfg.Similarity.BuildCap, logger),
	}

	if reader, err := exifmeta.NewReader(); err != nil {
		logger.Warn("exiftool unavailable, metadata steps will be skipped", "error", err)
	} else {
		a.exif = reader
	}

	a.embed = inference.NewEmbeddingClient(cfg.Inference.EmbeddingURL, cfg.Inference.EmbeddingModel)
	extractor := faces.NewExtractor(store,
		inference.NewFaceClient(cfg.Inference.FaceURL), a.thumbs, cfg.Data.FacesDir(), logger)
	a.identity = faces.NewIdentity(store, cfg.Faces.ClusterEpsilon, logger)

	refiner, err := captionRefiner(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Store:      store,
		Thumbs:     a.thumbs,
		Geocoder:   geocode.New(cfg.Geocode.Provider, cfg.Geocode.APIKey, logger),
		Tags:       inference.NewTagsClient(cfg.Inference.TagsURL),
		Captioner:  inference.NewCaptionClient(cfg.Inference.CaptionURL),
		Refiner:    refiner,
		Extractor:  extractor,
		Embeddings: a.embed,
		Logger:     logger,
	}
	if a.exif != nil {
		deps.Exif = a.exif
	}
	a.pipe = pipeline.New(deps)
	a.scan = scanner.New(store, a.pipe, a.index, logger)
	return a, nil
}

func (a *app) close() {
	if a.exif != nil {
		_ = a.exif.Close()
	}
	a.store.Close()
}

// captionRefiner selects the optional caption refinement backend.
func captionRefiner(ctx context.Context, cfg *config.Config) (caption.Provider, error) {
	switch cfg.Caption.Provider {
	case "":
		return nil, nil
	case "local":
		llm := inference.NewLLMClient(cfg.Inference.LLMURL, cfg.Inference.LLMModel)
		return caption.NewLocalProvider(llm), nil
	case "openai":
		if cfg.Caption.OpenAIToken == "" {
			return nil, errors.New("CAPTION_PROVIDER=openai requires OPENAI_TOKEN")
		}
		return caption.NewOpenAIProvider(cfg.Caption.OpenAIToken), nil
	case "gemini":
		if cfg.Caption.GeminiAPIKey == "" {
			return nil, errors.New("CAPTION_PROVIDER=gemini requires GEMINI_API_KEY")
		}
		p, err := caption.NewGeminiProvider(ctx, cfg.Caption.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown caption provider %q", cfg.Caption.Provider)
	}
}

// resolveUser picks the library owner from --user, or the only user when
// the flag is not given. Users without their own datetime rules inherit the
// configured default ladder.
func (a *app) resolveUser(ctx context.Context) (*database.User, error) {
	var user *database.User
	if flagUser != "" {
		u, err := a.store.GetUserByUsername(ctx, flagUser)
		if err != nil {
			return nil, fmt.Errorf("look up user %q: %w", flagUser, err)
		}
		user = u
	} else {
		users, err := a.store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		switch len(users) {
		case 0:
			return nil, errors.New("no users exist yet; create one with 'photo-library user create'")
		case 1:
			user = &users[0]
		default:
			return nil, errors.New("multiple users exist, pass --user")
		}
	}
	if len(user.DatetimeRules) == 0 {
		user.DatetimeRules = a.cfg.DatetimeRules
	}
	return user, nil
}

// jobID returns the UUID from --job-id or a fresh one.
func jobID() (uuid.UUID, error) {
	if flagJobID == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(flagJobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --job-id: %w", err)
	}
	return id, nil
}

// runJob is the shared driver behind every job command: connect, resolve
// the user, start the job row, run the body with progress shown on the
// terminal, then record success or failure. SIGINT cancels cooperatively.
func runJob(jobType string, body func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.resolveUser(ctx)
	if err != nil {
		return err
	}
	id, err := jobID()
	if err != nil {
		return err
	}

	run, err := a.jobs.Start(ctx, id, jobType, user.ID)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go watchProgress(done, run)

	bodyErr := body(run.Context(), a, user, run)
	close(done)

	// persist the outcome even when the run context was cancelled
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if bodyErr != nil {
		if err := run.Fail(finishCtx, bodyErr); err != nil {
			return fmt.Errorf("record job failure: %w", err)
		}
		return bodyErr
	}
	if err := run.Finish(finishCtx); err != nil {
		return err
	}
	fmt.Printf("Job %s (%s) finished\n", id, jobType)
	return nil
}

// watchProgress mirrors the job's progress counter onto a terminal bar
// until done closes.
func watchProgress(done <-chan struct{}, run *jobs.Run) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	for {
		select {
		case <-done:
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
			}
			return
		case <-ticker.C:
			progress := run.Detail().Result.Progress
			if progress.Target == 0 {
				continue
			}
			if bar == nil {
				bar = progressbar.Default(int64(progress.Target))
			}
			_ = bar.Set(progress.Current)
		}
	}
}
