package admin

import (
	"context"
	"fmt"

	"github.com/swasthya/healthcard/internal/domain/emergency"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/platform/auth"
)

const recentAccessCount = 10

type UserDirectory interface {
	SearchUsers(ctx context.Context, q string, limit, offset int) ([]*identity.User, int, error)
	CountByRole(ctx context.Context) (identity.RoleCounts, error)
}

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type AccessLogReader interface {
	List(ctx context.Context, limit, offset int) ([]*emergency.AccessLog, int, error)
}

type Service struct {
	users    UserDirectory
	profiles Counter
	records  Counter
	logs     AccessLogReader
}

func NewService(users UserDirectory, profiles, records Counter, logs AccessLogReader) *Service {
	return &Service{users: users, profiles: profiles, records: records, logs: logs}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	roles, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	profiles, err := s.profiles.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}
	records, err := s.records.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	recent, _, err := s.logs.List(ctx, recentAccessCount, 0)
	if err != nil {
		return nil, fmt.Errorf("recent accesses: %w", err)
	}
	if recent == nil {
		recent = []*emergency.AccessLog{}
	}

	return &Summary{
		TotalUsers:     roles.Total(),
		TotalPatients:  roles[auth.RolePatient],
		TotalProviders: roles[auth.RoleProvider],
		TotalProfiles:  profiles,
		TotalRecords:   records,
		RecentAccesses: recent,
	}, nil
}

func (s *Service) Users(ctx context.Context, q string, limit, offset int) ([]*identity.User, int, error) {
	return s.users.SearchUsers(ctx, q, limit, offset)
}

func (s *Service) AccessLogs(ctx context.Context, limit, offset int) ([]*emergency.AccessLog, int, error) {
	return s.logs.List(ctx, limit, offset)
}
