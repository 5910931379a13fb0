package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"promo-tracker/db/migrations"
	"promo-tracker/internal/config"
	"promo-tracker/internal/engine"
)

type Store struct {
	pool *pgxpool.Pool
}

// Entry is one persisted changelog line: a change event flattened
// together with its resolved banner action and the record the event
// refers to (current for start/update, previous for end).
type Entry struct {
	RunID        uuid.UUID `json:"-"`
	Date         string    `json:"date"`
	EventType    string    `json:"event_type"`
	CampaignHash string    `json:"campaign_hash"`
	BannerAction string    `json:"banner_action,omitempty"`

	ProviderID          string              `json:"provider_id"`
	ProviderName        string              `json:"provider_name"`
	AccountManager      string              `json:"account_manager"`
	City                string              `json:"city"`
	CampaignID          string              `json:"campaign_id"`
	DiscountType        string              `json:"discount_type"`
	BonusType           string              `json:"bonus_type"`
	BonusPercentage     decimal.NullDecimal `json:"bonus_percentage"`
	BonusMaxValue       decimal.NullDecimal `json:"bonus_max_value"`
	SpendObjective      string              `json:"spend_objective"`
	MinBasketSize       decimal.NullDecimal `json:"min_basket_size"`
	CostSharePercentage decimal.NullDecimal `json:"cost_share_percentage"`
	CampaignStart       *time.Time          `json:"campaign_start"`
	CampaignEnd         *time.Time          `json:"campaign_end"`

	ChangedFields []engine.FieldChange `json:"changed_fields,omitempty"`
}

// RunState is the explicit processing bookkeeping carried between
// invocations instead of ambient globals.
type RunState struct {
	LastProcessed *time.Time
	LastSnapshot  string
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies all up migrations embedded in db/migrations.
func Migrate(dsn string) error {
	driver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	defer driver.Close()

	mg, err := migrate.NewWithSourceInstance("iofs", driver, dsn)
	if err != nil {
		return err
	}
	defer mg.Close()

	_, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		return errors.New("database is in dirty state")
	}

	if err = mg.Migrate(migrations.Version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const insertEntrySQL = `
	INSERT INTO changelog_entries (
		run_id, entry_date, event_type, campaign_hash, banner_action,
		provider_id, provider_name, account_manager, city, campaign_id,
		discount_type, bonus_type, bonus_percentage, bonus_max_value,
		spend_objective, min_basket_size, cost_share_percentage,
		campaign_start, campaign_end, changed_fields
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

// AppendEntries persists a batch of changelog entries in one round trip.
func (s *Store) AppendEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		var changed []byte
		if len(e.ChangedFields) > 0 {
			b, err := json.Marshal(e.ChangedFields)
			if err != nil {
				return fmt.Errorf("marshal changed fields: %w", err)
			}
			changed = b
		}
		var action *string
		if e.BannerAction != "" {
			action = &e.BannerAction
		}
		batch.Queue(insertEntrySQL,
			e.RunID, e.Date, e.EventType, e.CampaignHash, action,
			e.ProviderID, e.ProviderName, e.AccountManager, e.City, e.CampaignID,
			e.DiscountType, e.BonusType, e.BonusPercentage, e.BonusMaxValue,
			e.SpendObjective, e.MinBasketSize, e.CostSharePercentage,
			e.CampaignStart, e.CampaignEnd, changed,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert changelog entry: %w", err)
		}
	}
	return nil
}

const selectEntrySQL = `
	SELECT run_id, to_char(entry_date, 'YYYY-MM-DD'), event_type, campaign_hash,
	       COALESCE(banner_action, ''),
	       provider_id, provider_name, account_manager, city, campaign_id,
	       discount_type, bonus_type, bonus_percentage, bonus_max_value,
	       spend_objective, min_basket_size, cost_share_percentage,
	       campaign_start, campaign_end, changed_fields
	FROM changelog_entries`

// EntriesSince returns all entries on or after minDate (YYYY-MM-DD),
// oldest first. An empty minDate returns everything.
func (s *Store) EntriesSince(ctx context.Context, minDate string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := selectEntrySQL + ` WHERE entry_date >= COALESCE(NULLIF($1, '')::date, '-infinity'::date) ORDER BY entry_date, campaign_hash`
	rows, err := s.pool.Query(ctx, query, minDate)
	if err != nil {
		return nil, fmt.Errorf("query changelog entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// EntriesByDate returns the entries of one processing date.
func (s *Store) EntriesByDate(ctx context.Context, date string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := selectEntrySQL + ` WHERE entry_date = $1::date ORDER BY campaign_hash`
	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query changelog entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Dates returns every distinct processing date, ascending.
func (s *Store) Dates(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT to_char(entry_date, 'YYYY-MM-DD') FROM changelog_entries ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query changelog dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// LoadRunState returns the persisted bookkeeping; zero state when no
// run was recorded yet.
func (s *Store) LoadRunState(ctx context.Context) (RunState, error) {
	var st RunState
	err := s.pool.QueryRow(ctx,
		`SELECT last_processed, last_snapshot FROM run_state WHERE id = 1`).
		Scan(&st.LastProcessed, &st.LastSnapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunState{}, nil
	}
	if err != nil {
		return RunState{}, fmt.Errorf("load run state: %w", err)
	}
	return st, nil
}

func (s *Store) SaveRunState(ctx context.Context, st RunState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_state (id, last_processed, last_snapshot)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_processed = $1, last_snapshot = $2`,
		st.LastProcessed, st.LastSnapshot)
	if err != nil {
		return fmt.Errorf("save run state: %w", err)
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			changed []byte
		)
		if err := rows.Scan(
			&e.RunID, &e.Date, &e.EventType, &e.CampaignHash, &e.BannerAction,
			&e.ProviderID, &e.ProviderName, &e.AccountManager, &e.City, &e.CampaignID,
			&e.DiscountType, &e.BonusType, &e.BonusPercentage, &e.BonusMaxValue,
			&e.SpendObjective, &e.MinBasketSize, &e.CostSharePercentage,
			&e.CampaignStart, &e.CampaignEnd, &changed,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(changed) > 0 {
			if err := json.Unmarshal(changed, &e.ChangedFields); err != nil {
				return nil, fmt.Errorf("decode changed fields: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
