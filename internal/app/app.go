// Package app wires every component once from a Config. Both front ends
// receive the resulting *App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/auth"
	"github.com/geocoder89/perfeval/internal/backup"
	"github.com/geocoder89/perfeval/internal/config"
	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/geocoder89/perfeval/internal/export"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/geocoder89/perfeval/internal/repo/jsonfile"
	"github.com/geocoder89/perfeval/internal/session"
	"github.com/geocoder89/perfeval/internal/store"
	"github.com/google/uuid"
)

type App struct {
	Config config.Config
	Log    *slog.Logger
	Prom   *observability.Prom

	Users       *jsonfile.UsersRepo
	Criteria    *jsonfile.CriteriaRepo
	Evaluations *jsonfile.EvaluationsRepo

	Auth     *auth.Service
	Engine   *engine.Engine
	Exporter *export.Exporter
	Backup   *backup.Runner
	Tokens   *auth.Manager
	Revoker  session.Revoker
	Rating   evaluation.Rating
}

// New opens the three data files and builds the services on top of them.
// prom may be nil, in which case store metrics are not recorded.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	opts := store.Options{
		LockTimeout: cfg.LockTimeout,
		Mode:        store.LockMode(cfg.LockMode),
		Logger:      log,
	}
	if prom != nil {
		opts.Observer = prom
	}

	usersStore, err := store.New(cfg.UsersFile, opts)
	if err != nil {
		return nil, fmt.Errorf("open users store: %w", err)
	}
	criteriaStore, err := store.New(cfg.CriteriaFile, opts)
	if err != nil {
		return nil, fmt.Errorf("open criteria store: %w", err)
	}
	evaluationsStore, err := store.New(cfg.EvaluationsFile, opts)
	if err != nil {
		return nil, fmt.Errorf("open evaluations store: %w", err)
	}

	users := jsonfile.NewUsersRepo(usersStore, log)
	criteria := jsonfile.NewCriteriaRepo(criteriaStore, log)
	evaluations := jsonfile.NewEvaluationsRepo(evaluationsStore, log)

	exporter, err := export.New(cfg.ExportsDir, log)
	if err != nil {
		return nil, err
	}

	var uploader backup.Uploader
	if cfg.S3Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("configure s3 backups: %w", err)
		}
		uploader = up
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Tokens from a previous run stop verifying after a restart.
		secret = uuid.NewString()
		log.Warn("JWT_SECRET not set, using an ephemeral signing key")
	}

	var revoker session.Revoker = session.NewMemoryRevoker()
	if cfg.RedisAddr != "" {
		revoker = session.NewRedisRevoker(session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	return &App{
		Config:      cfg,
		Log:         log,
		Prom:        prom,
		Users:       users,
		Criteria:    criteria,
		Evaluations: evaluations,
		Auth:        auth.NewService(users, log),
		Engine:      engine.New(criteria, evaluations),
		Exporter:    exporter,
		Backup:      backup.New(cfg.DataDir, cfg.BackupsDir, uploader, log),
		Tokens:      auth.NewManager(secret, cfg.AccessTokenTTL),
		Revoker:     revoker,
		Rating:      evaluation.Rating{Min: cfg.RatingMin, Max: cfg.RatingMax},
	}, nil
}

// Ping reports whether every data file can be locked and parsed.
func (a *App) Ping(ctx context.Context) error {
	return errors.Join(
		a.Users.Ping(ctx),
		a.Criteria.Ping(ctx),
		a.Evaluations.Ping(ctx),
	)
}

func (a *App) Close() error {
	return a.Revoker.Close()
}
