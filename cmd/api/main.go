package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/evidence-analyzer/internal/application"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/checklists"
	"github.com/bryanwahyu/evidence-analyzer/internal/application/report"
	"github.com/bryanwahyu/evidence-analyzer/internal/config"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/ai/openai"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/evidence-analyzer/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/evidence-analyzer/internal/infra/db/postgres"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/extract"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/evidence-analyzer/internal/infra/seed"
	minioStore "github.com/bryanwahyu/evidence-analyzer/internal/infra/storage"
	"github.com/bryanwahyu/evidence-analyzer/internal/middleware"
)

type repos struct {
	checklists checklist.Repository
	analyses   analyst.Repository
	db         *sql.DB
}

func main() {
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config invalid: %v", e)
		}
		log.Fatalf("config has %d error(s)", len(errs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init repo
	rp, err := openRepos(ctx, cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if rp.db != nil {
		defer rp.db.Close()
	}

	if err := seed.EnsureDefault(ctx, rp.checklists); err != nil {
		log.Fatalf("seed error: %v", err)
	}
	if cfg.Analysis.SeedChecklist != "" {
		c, err := seed.Load(cfg.Analysis.SeedChecklist)
		if err != nil {
			log.Fatalf("seed checklist %s: %v", cfg.Analysis.SeedChecklist, err)
		}
		if err := seed.Ensure(ctx, rp.checklists, c); err != nil {
			log.Fatalf("seed error: %v", err)
		}
	}

	health := map[string]middleware.HealthChecker{}
	if rp.db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: rp.db}
	}

	// init minio
	var docs checklists.DocumentStore
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.Public,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		docs = store
		health["storage"] = store
	} else {
		log.Printf("minio endpoint not set, uploaded documents are not kept")
	}

	// init services
	aiClient := openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout)
	analysisSvc := analysis.NewService(aiClient, analysis.Options{
		Model:            cfg.AI.Model,
		MatchMaxTokens:   cfg.AI.MatchMaxTokens,
		GapMaxTokens:     cfg.AI.GapMaxTokens,
		EnforceMatchRule: cfg.AI.EnforceMatchRule,
		StrictShape:      cfg.AI.StrictShape,
	})
	clock := application.SystemClock{}
	checklistSvc := &checklists.Service{
		Repo:        rp.checklists,
		Analyses:    rp.analyses,
		Documents:   docs,
		Extractor:   extract.Extractor{},
		Matcher:     analysisSvc,
		Clock:       clock,
		Concurrency: cfg.Analysis.Concurrency,
	}
	reportSvc := &report.Service{
		Checklists: rp.checklists,
		Analyses:   rp.analyses,
		Gaps:       analysisSvc,
		Clock:      clock,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	go limiter.Run(ctx, 5*time.Minute)

	// init router
	handler := httpserver.NewRouter(httpserver.Deps{
		Analysis:       analysisSvc,
		Checklists:     checklistSvc,
		Reports:        reportSvc,
		Analyses:       rp.analyses,
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Health:         health,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // whole-checklist analysis calls the model once per item
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s model=%s driver=%s", addr, cfg.AI.Model, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openRepos(ctx context.Context, cfg *config.Config) (repos, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return repos{}, err
		}
		return repos{
			checklists: mysqlp.NewChecklistRepository(db),
			analyses:   mysqlp.NewAnalystRepository(db),
			db:         db,
		}, nil
	case config.DriverPostgres:
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return repos{}, err
		}
		return repos{
			checklists: pgp.NewChecklistRepository(db),
			analyses:   pgp.NewAnalystRepository(db),
			db:         db,
		}, nil
	default:
		log.Printf("using in-memory store, data is lost on restart")
		return repos{
			checklists: memory.NewChecklistRepo(),
			analyses:   memory.NewAnalysisRepo(),
		}, nil
	}
}
