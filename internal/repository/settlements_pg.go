package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dexgate/dexgate/internal/model"
)

type PostgresSettlementRepo struct {
	db *sqlx.DB
}

func NewPostgresSettlementRepo(db *sqlx.DB) *PostgresSettlementRepo {
	repo := &PostgresSettlementRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresSettlementRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			id          TEXT PRIMARY KEY,
			chain_id    BIGINT NOT NULL,
			mode        TEXT NOT NULL,
			side        TEXT NOT NULL,
			sell_token  TEXT NOT NULL,
			buy_token   TEXT NOT NULL,
			sell_amount TEXT NOT NULL DEFAULT '',
			buy_amount  TEXT NOT NULL DEFAULT '',
			tx_hash     TEXT NOT NULL DEFAULT '',
			trade_hash  TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (r *PostgresSettlementRepo) Insert(ctx context.Context, rec *model.SettlementRecord) error {
	if rec == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (
			id, chain_id, mode, side, sell_token, buy_token,
			sell_amount, buy_amount, tx_hash, trade_hash, status, reason,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8,$9,$10,$11,$12,
			$13,$14
		)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.ChainID, rec.Mode, rec.Side, rec.SellToken, rec.BuyToken,
		rec.SellAmount, rec.BuyAmount, rec.TxHash, rec.TradeHash, rec.Status, rec.Reason,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *PostgresSettlementRepo) UpdateStatus(ctx context.Context, id, status, txHash, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settlements
		SET status = $2, tx_hash = COALESCE(NULLIF($3, ''), tx_hash), reason = $4, updated_at = $5
		WHERE id = $1
	`, id, status, txHash, reason, time.Now().UTC())
	return err
}

func (r *PostgresSettlementRepo) Get(ctx context.Context, id string) (*model.SettlementRecord, error) {
	var rec model.SettlementRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM settlements WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresSettlementRepo) List(ctx context.Context, limit int) ([]*model.SettlementRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows := []*model.SettlementRecord{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM settlements ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
