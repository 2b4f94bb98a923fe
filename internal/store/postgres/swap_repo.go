package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/lib/pq"
)

const swapColumns = `id, src_network, src_asset, dst_network, dst_asset, hashlock, timelock,
	reward, reward_timelock, secret, status, scheduled_at, created_at, updated_at`

type SwapRepo struct {
	db *DB
}

var _ store.SwapRepository = (*SwapRepo)(nil)

func NewSwapRepo(db *DB) *SwapRepo {
	return &SwapRepo{db: db}
}

// Upsert inserts the swap or fills in its lock columns. Existing status,
// secret and scheduled_at are never overwritten.
func (r *SwapRepo) Upsert(ctx context.Context, s *model.Swap) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swaps (id, src_network, src_asset, dst_network, dst_asset, hashlock, timelock,
			reward, reward_timelock, secret, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			src_network     = COALESCE(EXCLUDED.src_network, swaps.src_network),
			src_asset       = COALESCE(EXCLUDED.src_asset, swaps.src_asset),
			dst_network     = COALESCE(EXCLUDED.dst_network, swaps.dst_network),
			dst_asset       = COALESCE(EXCLUDED.dst_asset, swaps.dst_asset),
			hashlock        = COALESCE(EXCLUDED.hashlock, swaps.hashlock),
			timelock        = COALESCE(EXCLUDED.timelock, swaps.timelock),
			reward          = COALESCE(EXCLUDED.reward, swaps.reward),
			reward_timelock = COALESCE(EXCLUDED.reward_timelock, swaps.reward_timelock),
			updated_at      = now()
	`, s.ID, s.SrcNetwork, s.SrcAsset, s.DstNetwork, s.DstAsset, s.Hashlock, s.Timelock,
		s.Reward, s.RewardTimelock, s.Secret, statusOrDefault(s.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert swap %s: %w", s.ID, err)
	}
	return nil
}

func (r *SwapRepo) Insert(ctx context.Context, s *model.Swap) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swaps (id, src_network, src_asset, dst_network, dst_asset, hashlock, timelock,
			reward, reward_timelock, secret, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.ID, s.SrcNetwork, s.SrcAsset, s.DstNetwork, s.DstAsset, s.Hashlock, s.Timelock,
		s.Reward, s.RewardTimelock, s.Secret, statusOrDefault(s.Status), s.ScheduledAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert swap %s: %w", s.ID, store.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("insert swap %s: %w", s.ID, err)
	}
	return nil
}

func (r *SwapRepo) FindByID(ctx context.Context, id string) (*model.Swap, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = $1`, id)
	s, err := scanSwap(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find swap %s: %w", id, err)
	}
	return s, nil
}

func (r *SwapRepo) Update(ctx context.Context, id string, patch model.SwapPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	set, args := swapPatchClauses(patch)
	args = append(args, id)

	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`UPDATE swaps SET %s, updated_at = now() WHERE id = $%d`, set, len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update swap %s: %w", id, err)
	}
	return nil
}

func (r *SwapRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM swaps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete swap %s: %w", id, err)
	}
	return nil
}

func (r *SwapRepo) UpdateMany(ctx context.Context, ids []string, patch model.SwapPatch) error {
	if len(ids) == 0 || patch.IsEmpty() {
		return nil
	}
	set, args := swapPatchClauses(patch)
	args = append(args, pq.Array(ids))

	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`UPDATE swaps SET %s, updated_at = now() WHERE id = ANY($%d)`, set, len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %d swaps: %w", len(ids), err)
	}
	return nil
}

func (r *SwapRepo) FindEligible(ctx context.Context, windowEnd int64, limit int) ([]model.Swap, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+swapColumns+`
		FROM swaps
		WHERE status = $1 AND reward_timelock <= $2 AND scheduled_at IS NULL
		ORDER BY reward_timelock ASC
		LIMIT $3
	`, model.SwapStatusRedeemed, windowEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("find eligible swaps: %w", err)
	}
	defer rows.Close()

	var out []model.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eligible swap: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSwap(row rowScanner) (*model.Swap, error) {
	var (
		s                                  model.Swap
		srcNetwork, srcAsset, dstNetwork   sql.NullString
		dstAsset, hashlock, reward, secret sql.NullString
		timelock, rewardTimelock           sql.NullInt64
		scheduledAt                        sql.NullTime
	)
	err := row.Scan(&s.ID, &srcNetwork, &srcAsset, &dstNetwork, &dstAsset, &hashlock, &timelock,
		&reward, &rewardTimelock, &secret, &s.Status, &scheduledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.SrcNetwork = nullNetwork(srcNetwork)
	s.DstNetwork = nullNetwork(dstNetwork)
	s.SrcAsset = nullString(srcAsset)
	s.DstAsset = nullString(dstAsset)
	s.Hashlock = nullString(hashlock)
	s.Reward = nullString(reward)
	s.Secret = nullString(secret)
	s.Timelock = nullInt64(timelock)
	s.RewardTimelock = nullInt64(rewardTimelock)
	if scheduledAt.Valid {
		t := scheduledAt.Time
		s.ScheduledAt = &t
	}
	return &s, nil
}

func swapPatchClauses(patch model.SwapPatch) (string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Secret != nil {
		add("secret", *patch.Secret)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ScheduledAt != nil {
		add("scheduled_at", *patch.ScheduledAt)
	}
	return strings.Join(set, ", "), args
}

func statusOrDefault(status model.SwapStatus) model.SwapStatus {
	if status == "" {
		return model.SwapStatusInProgress
	}
	return status
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullNetwork(v sql.NullString) *model.Network {
	if !v.Valid {
		return nil
	}
	n := model.Network(v.String)
	return &n
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
