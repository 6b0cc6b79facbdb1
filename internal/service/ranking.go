package service

import (
	"context"
	"time"

	"discord-community-bot/internal/model"
	"discord-community-bot/internal/repository"
)

// RankingService handles guild leaderboards.
type RankingService struct {
	userRepo *repository.UserRepository
	txRepo   *repository.TransactionRepository
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
	timezone *time.Location,
) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		userRepo: userRepo,
		txRepo:   txRepo,
		timezone: timezone,
		now:      time.Now,
	}
}

// GetTopUsers retrieves the richest members of a guild.
func (s *RankingService) GetTopUsers(ctx context.Context, guildID int64, limit int) ([]*model.User, error) {
	return s.userRepo.GetTopUsers(ctx, guildID, limit)
}

// GetDailyWinners retrieves today's biggest game winners.
func (s *RankingService) GetDailyWinners(ctx context.Context, guildID int64, limit int) ([]*model.DailyRank, error) {
	return s.txRepo.GetDailyWinners(ctx, guildID, s.now().In(s.timezone), limit)
}

// GetDailyLosers retrieves today's biggest game losers.
func (s *RankingService) GetDailyLosers(ctx context.Context, guildID int64, limit int) ([]*model.DailyRank, error) {
	return s.txRepo.GetDailyLosers(ctx, guildID, s.now().In(s.timezone), limit)
}
