package housekeeping

import (
	"context"
	"time"

	"party-service/internal/repository"

	"go.uber.org/zap"
)

// Purger deletes parties past a maximum age, with their chat history and
// leftover notification records. It runs independently of the dispatcher; a
// purged party produces no notifications.
type Purger struct {
	parties repository.PartyRepository
	notifs  repository.NotificationRepository
	chats   repository.ChatRepository
	maxAge  time.Duration
	logger  *zap.Logger
}

func NewPurger(
	parties repository.PartyRepository,
	notifs repository.NotificationRepository,
	chats repository.ChatRepository,
	maxAge time.Duration,
	logger *zap.Logger,
) *Purger {
	return &Purger{parties: parties, notifs: notifs, chats: chats, maxAge: maxAge, logger: logger}
}

// Run loops until the context is cancelled. One pass at startup, then one per
// interval tick.
func (p *Purger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.purgeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.purgeOnce(ctx)
		}
	}
}

func (p *Purger) purgeOnce(ctx context.Context) {
	cutoff := time.Now().Add(-p.maxAge)
	purged := 0
	for {
		// Bounded pages; each page is committed before fetching the next.
		batch, err := p.parties.ListCreatedBefore(ctx, cutoff, repository.WriteBatchLimit)
		if err != nil {
			p.logger.Error("stale party listing failed", zap.Error(err))
			return
		}
		if len(batch) == 0 {
			break
		}
		pageStart := purged
		for _, party := range batch {
			if _, err := p.chats.DeleteByParty(ctx, party.ID); err != nil {
				p.logger.Error("chat purge failed", zap.String("party_id", party.ID), zap.Error(err))
				continue // retry next pass rather than orphan messages
			}
			if _, err := p.notifs.DeletePartyScoped(ctx, party.ID); err != nil {
				p.logger.Error("notification purge failed", zap.String("party_id", party.ID), zap.Error(err))
				continue
			}
			if err := p.parties.Delete(ctx, party.ID); err != nil {
				p.logger.Error("party delete failed", zap.String("party_id", party.ID), zap.Error(err))
				continue
			}
			purged++
		}
		if len(batch) < repository.WriteBatchLimit || purged == pageStart {
			// Short page, or a page of nothing but failures: stop and let the
			// next pass retry.
			break
		}
	}
	if purged > 0 {
		p.logger.Info("purged stale parties", zap.Int("count", purged))
	}
}
