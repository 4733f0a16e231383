package service

import (
	"context"

	"github.com/rs/zerolog"

	"clan-tracker/internal/constants"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/repository"
)

// ActivityService answers inactivity queries from the persisted last-message
// timestamps.
type ActivityService struct {
	members *repository.MemberRepository
	logger  zerolog.Logger
}

func NewActivityService(members *repository.MemberRepository, logger zerolog.Logger) *ActivityService {
	return &ActivityService{members: members, logger: logger}
}

// InactiveMembers lists members whose last tracked message is older than the
// given number of days, or who were never seen. A days value of 0 uses the
// default window.
func (s *ActivityService) InactiveMembers(ctx context.Context, guildID string, days int) ([]domain.Member, error) {
	if days <= 0 {
		days = constants.DefaultInactivityDays
	}
	return s.members.GetInactiveMembers(ctx, guildID, days)
}
