// Package history stores and loads the raw balance history of addresses.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChorusOne/anthem-sub001/internal/datekey"
	"github.com/ChorusOne/anthem-sub001/internal/domain"
)

// ErrNotFound indicates that no history exists for the requested address.
var ErrNotFound = errors.New("history not found")

// Repository defines persistent storage for balance history.
type Repository interface {
	LoadHistory(ctx context.Context, address string) (domain.HistoryInput, error)
	SaveHistory(ctx context.Context, input domain.HistoryInput) error
	ListAddresses(ctx context.Context) ([]string, error)
}

// Stream names one of the observation tables.
type Stream string

const (
	StreamBalance     Stream = "balance_history"
	StreamDelegations Stream = "delegations"
	StreamUnbondings  Stream = "unbondings"
	StreamRewards     Stream = "delegator_rewards"
	StreamCommissions Stream = "validator_commissions"
)

// Streams lists every observation table in load order.
var Streams = []Stream{StreamBalance, StreamDelegations, StreamUnbondings, StreamRewards, StreamCommissions}

// field returns the HistoryInput slice a stream is stored in.
func field(input *domain.HistoryInput, s Stream) *[]domain.Observation {
	switch s {
	case StreamDelegations:
		return &input.Delegations
	case StreamUnbondings:
		return &input.Unbondings
	case StreamRewards:
		return &input.DelegatorRewards
	case StreamCommissions:
		return &input.ValidatorCommissions
	default:
		return &input.BalanceHistory
	}
}

// PgRepository implements Repository with PostgreSQL.
// Fiat prices are read for a single configured currency.
type PgRepository struct {
	pool     *pgxpool.Pool
	currency string
}

// NewPgRepository creates a new PostgreSQL history repository.
func NewPgRepository(pool *pgxpool.Pool, fiatCurrency string) *PgRepository {
	return &PgRepository{pool: pool, currency: fiatCurrency}
}

// LoadHistory loads every stream of address plus the price feed for the configured currency.
func (r *PgRepository) LoadHistory(ctx context.Context, address string) (domain.HistoryInput, error) {
	input := domain.HistoryInput{Address: address}

	for _, s := range Streams {
		obs, err := r.loadStream(ctx, s, address)
		if err != nil {
			return domain.HistoryInput{}, err
		}
		*field(&input, s) = obs
	}
	if input.IsEmpty() {
		return domain.HistoryInput{}, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	prices, err := r.loadPrices(ctx)
	if err != nil {
		return domain.HistoryInput{}, err
	}
	input.FiatPriceHistory = prices
	return input, nil
}

func (r *PgRepository) loadStream(ctx context.Context, s Stream, address string) ([]domain.Observation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT observed_at, balance::text, validator, denom, chain, height
		 FROM `+string(s)+`
		 WHERE address = $1
		 ORDER BY observed_at`, address)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s, err)
	}
	defer rows.Close()

	obs := []domain.Observation{}
	for rows.Next() {
		var (
			at time.Time
			o  domain.Observation
		)
		if err := rows.Scan(&at, &o.Balance, &o.Validator, &o.Denom, &o.Chain, &o.Height); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s, err)
		}
		o.Timestamp = at.UTC().Format(time.RFC3339)
		o.Address = address
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s, err)
	}
	return obs, nil
}

func (r *PgRepository) loadPrices(ctx context.Context) ([]domain.FiatPricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT observed_at, price
		 FROM fiat_prices
		 WHERE currency = $1
		 ORDER BY observed_at`, r.currency)
	if err != nil {
		return nil, fmt.Errorf("querying fiat prices: %w", err)
	}

	prices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FiatPricePoint, error) {
		var (
			at time.Time
			p  domain.FiatPricePoint
		)
		err := row.Scan(&at, &p.Price)
		p.Timestamp = at.UTC().Format(time.RFC3339)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning fiat prices: %w", err)
	}
	return prices, nil
}

// SaveHistory upserts every observation and price of input in one transaction.
func (r *PgRepository) SaveHistory(ctx context.Context, input domain.HistoryInput) error {
	if input.Address == "" {
		return errors.New("saving history: address is required")
	}

	batch := &pgx.Batch{}
	for _, s := range Streams {
		for _, o := range *field(&input, s) {
			at, err := datekey.Parse(o.Timestamp)
			if err != nil {
				return fmt.Errorf("saving %s: %w", s, err)
			}
			if _, err := domain.ToDecimal(o.Balance); err != nil {
				return fmt.Errorf("saving %s at %s: %w", s, o.Timestamp, err)
			}
			batch.Queue(
				`INSERT INTO `+string(s)+` (address, observed_at, balance, validator, denom, chain, height)
				 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
				 ON CONFLICT (address, observed_at)
				 DO UPDATE SET balance = EXCLUDED.balance, height = EXCLUDED.height`,
				input.Address, at, o.Balance, o.Validator, o.Denom, o.Chain, o.Height)
		}
	}
	for _, p := range input.FiatPriceHistory {
		at, err := datekey.Parse(p.Timestamp)
		if err != nil {
			return fmt.Errorf("saving fiat price: %w", err)
		}
		batch.Queue(
			`INSERT INTO fiat_prices (currency, observed_at, price)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (currency, observed_at)
			 DO UPDATE SET price = EXCLUDED.price`,
			r.currency, at, p.Price)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("saving history for %s: %w", input.Address, err)
		}
		return nil
	})
}

// ListAddresses returns every address with at least one observation.
func (r *PgRepository) ListAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address FROM balance_history
		UNION SELECT address FROM delegations
		UNION SELECT address FROM unbondings
		UNION SELECT address FROM delegator_rewards
		UNION SELECT address FROM validator_commissions
		ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning addresses: %w", err)
	}
	return addresses, nil
}
