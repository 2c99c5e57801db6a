package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/eduassist/internal/blob"
	"github.com/abhisek/eduassist/internal/cache"
	"github.com/abhisek/eduassist/internal/config"
	"github.com/abhisek/eduassist/internal/embedding"
	"github.com/abhisek/eduassist/internal/interactions"
	"github.com/abhisek/eduassist/internal/llm"
	"github.com/abhisek/eduassist/internal/materials"
	"github.com/abhisek/eduassist/internal/progress"
	"github.com/abhisek/eduassist/internal/rag"
	"github.com/abhisek/eduassist/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

// runServe opens the store, builds dependencies, and serves until SIGINT
// or SIGTERM.
func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}
	answers := openCache(ctx, cfg)

	provider, err := llm.NewProvider(ctx, cfg.LLMSettings(), st.EventRepo())
	if err != nil {
		slog.Warn("LLM provider not configured, questions against uploads will fail", "err", err)
		provider = nil
	}

	factory, err := embedding.NewFactory(cfg.EmbeddingSettings())
	if err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}

	registry := rag.NewRegistry()
	reaper := rag.NewReaper(registry, cfg.Retrieval)
	if err := reaper.Start(); err != nil {
		return err
	}
	defer reaper.Stop()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Deps{
		Materials:    materials.NewService(blobs, st.MaterialRepo(), rag.NewBuilder(factory, cfg.Retrieval), registry),
		Answerer:     rag.NewAnswerer(provider, registry, answers, cfg.Retrieval),
		Interactions: interactions.NewLogger(st.LogRepo()),
		Progress:     progress.NewTracker(st.ProgressRepo()),
		DB:           st,
	}, server.Options{
		AuthToken:       cfg.Server.AuthToken,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	slog.Info("starting eduassist",
		"version", version,
		"db", st.Dialect(),
		"blob", cfg.Blob.Backend,
		"cache", cfg.Cache.Backend,
		"embedding", cfg.Embedding.Provider,
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.Blob.Backend != "s3" {
		fs, err := blob.NewFS(cfg.Blob.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	s3, err := blob.NewS3(cfg.Blob.S3)
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}

// openCache never fails; an unreachable Redis disables caching.
func openCache(ctx context.Context, cfg *config.Config) cache.AnswerCache {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemory(cfg.Cache.TTL)
	case "redis":
		opts := cfg.Cache.Redis
		if cfg.Cache.TTL > 0 {
			opts.TTL = cfg.Cache.TTL
		}
		r, err := cache.NewRedis(ctx, opts)
		if err != nil {
			slog.Warn("answer cache disabled", "err", err)
			return cache.Nop{}
		}
		return r
	default:
		return cache.Nop{}
	}
}
