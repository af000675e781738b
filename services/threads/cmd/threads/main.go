package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/forum-platform/internal/platform/auth"
	"github.com/example/forum-platform/internal/platform/config"
	"github.com/example/forum-platform/internal/platform/db"
	"github.com/example/forum-platform/internal/platform/httpserver"
	"github.com/example/forum-platform/internal/platform/logging"
	"github.com/example/forum-platform/internal/platform/natsconn"
	"github.com/example/forum-platform/internal/platform/run"
	"github.com/example/forum-platform/services/threads/internal/events"
	"github.com/example/forum-platform/services/threads/internal/handlers"
	"github.com/example/forum-platform/services/threads/internal/store"
	"github.com/example/forum-platform/services/threads/internal/thread"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.Log.Level, logging.Options{
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st, closeStore, ready := initStore(log)
	if closeStore != nil {
		defer closeStore()
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	verifier := auth.JWTVerifier{Secret: []byte(jwtSecret)}

	// Event publisher (non-fatal if NATS unavailable).
	var pub *events.Publisher
	if nc, err := natsconn.Connect(natsconn.Options{}); err != nil {
		log.Warn("nats unavailable, thread events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		if js, err := nc.JetStream(); err != nil {
			log.Warn("jetstream unavailable, thread events disabled", zap.Error(err))
		} else {
			pub = events.New(js, log)
		}
	}

	asm := thread.New(st.comments, st.votes, thread.DefaultPolicy)

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: ready})

	// Thread reads are public.
	r.Get("/v1/posts/{post_id}/comments", handlers.GetThread(asm, st.posts))
	r.Get("/v1/posts/{post_id}/comments/{comment_id}/replies", handlers.LoadMoreReplies(asm))
	r.Get("/v1/comments/{comment_id}", handlers.ResolveComment(asm))

	// Mutations require a bearer token and are rate limited.
	rl := httpserver.NewRateLimiter(10, 20)
	r.Group(func(r chi.Router) {
		r.Use(rl.Middleware)
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/posts/{post_id}/comments", handlers.CreateComment(st.comments, pub))
		r.Delete("/v1/comments/{comment_id}", handlers.DeleteComment(st.comments, pub))
		r.Post("/v1/votes/{target_type}/{target_id}", handlers.Vote(st.votes, pub))
		r.Post("/v1/comments/{comment_id}/answer", handlers.MarkAnswer(st.answers, pub))
		r.Delete("/v1/comments/{comment_id}/answer", handlers.UnmarkAnswer(st.answers, pub))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

type backends struct {
	comments store.CommentStore
	votes    store.VoteLedger
	posts    store.PostStore
	answers  store.AnswerStore
}

// initStore selects the storage backend. In production (APP_ENV=production)
// a working Postgres connection is required and the process terminates
// otherwise; in development a missing DATABASE_URL falls back to memory.
func initStore(log *zap.Logger) (backends, func(), func() error) {
	isProd := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	memory := func() (backends, func(), func() error) {
		m := store.NewMemoryStore()
		return backends{comments: m, votes: m, posts: m, answers: m}, nil, nil
	}

	pool, err := db.Open(context.Background())
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory store (development only)", zap.Error(err))
		return memory()
	}

	log.Info("threads store: postgres")
	pg := store.NewPostgresStore(pool)
	ready := func() error { return pg.Ping(context.Background()) }
	return backends{comments: pg, votes: pg, posts: pg, answers: pg}, pool.Close, ready
}
