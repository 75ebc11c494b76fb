package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/database"
	"github.com/rwagpt/agent/internal/utils"
)

// Repository persists the ledger in the transactions table of ledger.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

// LoadAll returns every record in append order
func (r *Repository) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, user_address, amount, asset_id, transaction_type,
		       x402_payment_id, status, chain_id, tx_hash, confirmed_at
		FROM transactions
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var timestamp string
		var status string
		var paymentID, txHash, confirmedAt sql.NullString

		if err := rows.Scan(
			&rec.ID, &timestamp, &rec.UserAddress, &rec.Amount, &rec.AssetID, &rec.TransactionType,
			&paymentID, &status, &rec.ChainID, &txHash, &confirmedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("invalid timestamp for transaction %s: %w", rec.ID, err)
		}
		rec.Status = Status(status)
		if paymentID.Valid {
			rec.X402PaymentID = StringPtr(paymentID.String)
		}
		if txHash.Valid {
			rec.TxHash = StringPtr(txHash.String)
		}
		if confirmedAt.Valid {
			at, err := time.Parse(time.RFC3339Nano, confirmedAt.String)
			if err != nil {
				return nil, fmt.Errorf("invalid confirmed_at for transaction %s: %w", rec.ID, err)
			}
			rec.ConfirmedAt = &at
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return records, nil
}

// ReplaceAll rewrites the table with records, in one transaction
func (r *Repository) ReplaceAll(ctx context.Context, records []Record) error {
	done := utils.MeasureDBQuery("ledger_replace_all", r.log)
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (
				id, position, timestamp, user_address, amount, asset_id, transaction_type,
				x402_payment_id, status, chain_id, tx_hash, confirmed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, rec := range records {
			var confirmedAt interface{}
			if rec.ConfirmedAt != nil {
				confirmedAt = rec.ConfirmedAt.UTC().Format(time.RFC3339Nano)
			}

			if _, err := stmt.ExecContext(ctx,
				rec.ID, i, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.UserAddress, rec.Amount,
				rec.AssetID, rec.TransactionType, nullable(rec.X402PaymentID), string(rec.Status),
				rec.ChainID, nullable(rec.TxHash), confirmedAt,
			); err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err == nil {
		done(int64(len(records)))
	}
	return err
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
