package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gradmatch/matcher/internal/types"
)

// IncrementSendLedger counts one delivered batch against the user's weekly
// quota. The ledger is keyed by (user_email, week_start) where week_start
// is the Monday 00:00 UTC of the week containing sentAt.
func (db *DB) IncrementSendLedger(ctx context.Context, userEmail string, tier types.Tier, jobCount int, sentAt time.Time) error {
	weekStart := types.WeekStart(sentAt)

	_, err := db.pool.Exec(ctx,
		`INSERT INTO send_ledger (user_email, week_start, tier, sends_used, jobs_sent)
		 VALUES ($1, $2, $3, 1, $4)
		 ON CONFLICT (user_email, week_start) DO UPDATE
		 SET sends_used = send_ledger.sends_used + 1,
		     jobs_sent = send_ledger.jobs_sent + $4,
		     tier = $3`,
		userEmail, weekStart, string(tier), jobCount,
	)
	if err != nil {
		return fmt.Errorf("failed to increment send ledger: %w", err)
	}
	return nil
}

// GetSendLedger returns the user's ledger entry for the week containing at,
// or nil when nothing has been sent that week.
func (db *DB) GetSendLedger(ctx context.Context, userEmail string, at time.Time) (*types.SendLedgerEntry, error) {
	var e types.SendLedgerEntry
	var tier string

	err := db.pool.QueryRow(ctx,
		`SELECT user_email, week_start, tier, sends_used, jobs_sent
		 FROM send_ledger
		 WHERE user_email = $1 AND week_start = $2`,
		userEmail, types.WeekStart(at),
	).Scan(&e.UserEmail, &e.WeekStart, &tier, &e.SendsUsed, &e.JobsSent)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get send ledger: %w", err)
	}

	e.Tier = types.Tier(tier)
	return &e, nil
}

// RemainingSends returns how many batches the user may still receive this
// week under the caller's quota. The quota comes from the distribution
// policy so a configured override applies here too. Never negative.
func (db *DB) RemainingSends(ctx context.Context, userEmail string, quota int, at time.Time) (int, error) {
	entry, err := db.GetSendLedger(ctx, userEmail, at)
	if err != nil {
		return 0, err
	}

	if entry == nil {
		return quota, nil
	}
	remaining := quota - entry.SendsUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
