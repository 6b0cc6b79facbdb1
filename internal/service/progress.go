package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"discord-community-bot/internal/repository"
	"discord-community-bot/internal/session"
)

// ProgressRecorder counts session wins toward quests and achievements.
type ProgressRecorder struct {
	progressRepo *repository.ProgressRepository
}

// NewProgressRecorder creates a new ProgressRecorder instance.
func NewProgressRecorder(progressRepo *repository.ProgressRepository) *ProgressRecorder {
	return &ProgressRecorder{progressRepo: progressRepo}
}

// SessionClosed implements session.Listener. Failures are logged; the
// settlement has already been applied.
func (r *ProgressRecorder) SessionClosed(ctx context.Context, ev session.ClosedEvent) {
	if ev.Progress == "" || (ev.Reason != session.ReasonCompleted && ev.Reason != session.ReasonTimeout) {
		return
	}
	for _, winner := range Winners(ev.Settlements) {
		if _, err := r.progressRepo.Increment(ctx, ev.Snapshot.GuildID, winner, ev.Progress, 1); err != nil {
			log.Warn().Err(err).
				Str("session_id", ev.Snapshot.ID).
				Int64("user_id", winner).
				Str("event", ev.Progress).
				Msg("Failed to record progress")
		}
	}
}

// Winners lists the participants whose outcome counts as a victory.
func Winners(settlements []session.Settlement) []int64 {
	var out []int64
	for _, st := range settlements {
		if st.Outcome.Won() {
			out = append(out, st.Player)
		}
	}
	return out
}
