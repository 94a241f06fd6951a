package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/config"
	"github.com/swasthya/healthcard/internal/domain/emergency"
	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
	"github.com/swasthya/healthcard/internal/platform/auth"
	"github.com/swasthya/healthcard/internal/platform/blobstore"
	"github.com/swasthya/healthcard/internal/platform/db"
	"github.com/swasthya/healthcard/internal/platform/sandbox"
)

// stores holds every repository behind one backing store. pool is nil on
// the memory store.
type stores struct {
	pool     *pgxpool.Pool
	tx       db.Transactor
	users    identity.UserRepository
	profiles healthprofile.ProfileRepository
	records  record.RecordRepository
	tokens   emergency.ShareTokenRepository
	logs     emergency.AccessLogRepository
	files    blobstore.Repository
	blobs    blobstore.Backend
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStore() {
		return memoryStores(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.NewLocalBackend(cfg.UploadDir)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		pool:     pool,
		tx:       db.NewPgTransactor(pool),
		users:    identity.NewUserRepoPG(pool),
		profiles: healthprofile.NewProfileRepoPG(pool),
		records:  record.NewRecordRepoPG(pool),
		tokens:   emergency.NewShareTokenRepoPG(pool),
		logs:     emergency.NewAccessLogRepoPG(pool),
		files:    blobstore.NewFileRepoPG(pool),
		blobs:    blobs,
	}, nil
}

func memoryStores() *stores {
	return &stores{
		tx:       db.NewMemTransactor(),
		users:    identity.NewUserRepoMem(),
		profiles: healthprofile.NewProfileRepoMem(),
		records:  record.NewRecordRepoMem(),
		tokens:   emergency.NewShareTokenRepoMem(),
		logs:     emergency.NewAccessLogRepoMem(),
		files:    blobstore.NewFileRepoMem(),
		blobs:    blobstore.NewMemoryBackend(),
	}
}

func (s *stores) close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// pinger is what /health/db checks; nil means the memory store.
func (s *stores) pinger() db.Pinger {
	if s.pool == nil {
		return nil
	}
	return s.pool
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Expires:    cfg.JWTExpires,
		Skipper:    auth.AuthSkipper,
	}
}

func (s *stores) seeder(cfg *config.Config, logger zerolog.Logger) *sandbox.Seeder {
	accounts := identity.NewService(s.users, auth.NewTokenIssuer(jwtConfig(cfg)))
	return sandbox.NewSeeder(accounts, s.profiles, s.records, logger)
}
