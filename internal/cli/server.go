package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/config"
	"practice-arena-service/internal/domain"
	"practice-arena-service/internal/infra/memory"
	pgstore "practice-arena-service/internal/infra/postgres"
	redisinfra "practice-arena-service/internal/infra/redis"
	transport "practice-arena-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the practice-arena server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// services bundles the wired application layer for the server and the
// one-shot commands.
type services struct {
	progress    *app.ProgressService
	selector    *app.Selector
	leaderboard *app.Leaderboard
	feed        *app.LeaderboardFeed
	stats       *app.StatsService
	admin       *app.AdminService
	evaluator   *app.BadgeEvaluator
	cleanup     func()
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	var (
		questions   app.QuestionRepository
		students    app.StudentRepository
		progress    app.ProgressRepository
		submissions app.SubmissionRepository
		badges      app.BadgeRepository
		activity    app.ActivityLog
		cascader    app.Cascader
		cleanup     = func() {}
	)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		cleanup = pool.Close
		questions = pgstore.NewQuestionRepo(pool)
		students = pgstore.NewStudentRepo(pool)
		progress = pgstore.NewProgressRepo(pool)
		submissions = pgstore.NewSubmissionRepo(pool)
		badges = pgstore.NewBadgeRepo(pool)
		activity = pgstore.NewActivityRepo(pool)
		cascader = pgstore.NewCascader(pool)
	} else {
		store := memory.NewStore()
		seedDemoData(ctx, store)
		questions = store
		students = store.Students()
		progress = store.Progress()
		submissions = store.SubmissionLog()
		badges = store.BadgeDefs()
		activity = store
		cascader = store
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var leaderboardCache app.LeaderboardCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		questions = redisinfra.NewQuestionCache(client, questions, catalogTTL)
		leaderboardCache = redisinfra.NewLeaderboardCache(client, config.TTLDuration(cfg.Redis.LeaderboardTTL, 15*time.Second))
	} else {
		questions = memory.NewQuestionCache(questions, catalogTTL)
	}

	clock := app.SystemClock{}
	locks := app.NewStudentLocks()
	accumulator := app.NewAccumulator(activity, clock)
	evaluator := app.NewBadgeEvaluator(badges, progress, students, activity, locks, clock)
	progressSvc := app.NewProgressService(questions, students, progress, submissions, activity,
		accumulator, evaluator, app.AcceptAllGrader{}, locks, clock)
	selector := app.NewSelector(questions, students, progress, locks, clock, cfg.Daily.Workers)
	leaderboard := app.NewLeaderboard(students, leaderboardCache)
	feed := app.NewLeaderboardFeed(leaderboard, 10)
	progressSvc.SetFeed(feed)

	return &services{
		progress:    progressSvc,
		selector:    selector,
		leaderboard: leaderboard,
		feed:        feed,
		stats:       app.NewStatsService(students, progress, activity),
		admin:       app.NewAdminService(questions, badges, cascader, clock),
		evaluator:   evaluator,
		cleanup:     cleanup,
	}, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.cleanup()

	apiHandler := transport.NewAPIHandler(svcs.progress, svcs.selector, svcs.leaderboard, svcs.stats, svcs.admin)
	wsHandler := transport.NewWSHandler(svcs.feed)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	go runDailyScheduler(schedulerCtx, svcs.selector)

	go func() {
		log.Printf("starting practice-arena service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runDailyScheduler fires the question-of-the-day batch at every UTC day
// boundary. A missed or interrupted run degrades to stale assignments, which
// readers already treat as absent.
func runDailyScheduler(ctx context.Context, selector *app.Selector) {
	for {
		now := time.Now().UTC()
		next := domain.Midnight(now).Add(24 * time.Hour)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			log.Printf("running daily question selection")
			if err := selector.RunForAll(ctx, fired); err != nil {
				log.Printf("daily selection: %v", err)
			}
		}
	}
}

// seedDemoData loads a small catalog so the no-database mode is usable out of
// the box; swap in Postgres for real deployments.
func seedDemoData(ctx context.Context, store *memory.Store) {
	now := time.Now().UTC()
	questions := []domain.Question{
		{
			ID:          "two-sum",
			Title:       "Two Sum",
			Description: "Find two numbers that add up to a target.",
			Difficulty:  domain.DifficultyCakewalk,
			Tags:        []string{"arrays"},
			Points:      10,
			IsActive:    true,
			CreatedAt:   now.Add(-72 * time.Hour),
		},
		{
			ID:          "valid-parens",
			Title:       "Valid Parentheses",
			Description: "Check whether a bracket sequence is balanced.",
			Difficulty:  domain.DifficultyEasy,
			Tags:        []string{"stacks", "strings"},
			Points:      20,
			IsActive:    true,
			CreatedAt:   now.Add(-48 * time.Hour),
		},
		{
			ID:          "rotate-matrix",
			Title:       "Rotate Matrix",
			Description: "Rotate an NxN matrix in place.",
			Difficulty:  domain.DifficultyMedium,
			Tags:        []string{"arrays", "math"},
			Points:      40,
			IsActive:    true,
			CreatedAt:   now.Add(-24 * time.Hour),
		},
	}
	for _, q := range questions {
		_ = store.Create(ctx, q)
	}
	_ = store.SaveStudent(ctx, domain.Student{
		ID:        "demo-student",
		Name:      "Demo Student",
		Email:     "demo@example.com",
		Role:      domain.RoleStudent,
		CreatedAt: now,
	})
	_ = store.CreateBadge(ctx, domain.Badge{
		ID:          "first-blood",
		Name:        "First Blood",
		Description: "Solve your first problem",
		Criteria:    domain.BadgeCriteria{Type: domain.CriteriaProblemsSolved, Value: 1, Timeframe: domain.TimeframeAllTime},
		Points:      50,
		IsActive:    true,
		CreatedAt:   now,
	})
}
