package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/worker"
)

// MarketConfigStore persists per-market fee configuration. It implements the
// write-through cache's provider contract and shares the listing store's
// serialized worker.
type MarketConfigStore struct {
	db     *sql.DB
	worker *worker.Serial
}

func NewMarketConfigStore(db *sql.DB, w *worker.Serial) *MarketConfigStore {
	return &MarketConfigStore{db: db, worker: w}
}

const marketConfigColumns = "market, listing_fee, tax_percent, storage_base, storage_percent, storage_free_days, slot_limit"

func scanMarketConfig(scan func(...any) error) (domain.MarketConfig, error) {
	var (
		cfg    domain.MarketConfig
		market string
	)
	if err := scan(&market, &cfg.ListingFee, &cfg.TaxRatePercent, &cfg.StorageFeeBase, &cfg.StorageFeePercent, &cfg.StorageFreeDays, &cfg.SlotLimit); err != nil {
		return domain.MarketConfig{}, err
	}
	var err error
	if cfg.Market, err = uuid.Parse(market); err != nil {
		return domain.MarketConfig{}, fmt.Errorf("parse market: %w", err)
	}
	return cfg, nil
}

func (s *MarketConfigStore) Get(ctx context.Context, key uuid.UUID) (domain.MarketConfig, bool, error) {
	var (
		cfg   domain.MarketConfig
		found bool
		err   error
	)
	serr := s.worker.Submit(ctx, func() {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+marketConfigColumns+` FROM market_config WHERE market = ?`, key.String())
		cfg, err = scanMarketConfig(row.Scan)
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		if err != nil {
			err = fmt.Errorf("query market config: %w", err)
			return
		}
		found = true
	})
	if serr != nil {
		return domain.MarketConfig{}, false, fmt.Errorf("get market config: %w", serr)
	}
	return cfg, found, err
}

func (s *MarketConfigStore) GetAll(ctx context.Context) (map[uuid.UUID]domain.MarketConfig, bool, error) {
	var (
		all map[uuid.UUID]domain.MarketConfig
		err error
	)
	serr := s.worker.Submit(ctx, func() {
		var rows *sql.Rows
		rows, err = s.db.QueryContext(ctx, `SELECT `+marketConfigColumns+` FROM market_config`)
		if err != nil {
			err = fmt.Errorf("query market configs: %w", err)
			return
		}
		defer rows.Close()
		all = make(map[uuid.UUID]domain.MarketConfig)
		for rows.Next() {
			var cfg domain.MarketConfig
			if cfg, err = scanMarketConfig(rows.Scan); err != nil {
				err = fmt.Errorf("scan market config: %w", err)
				return
			}
			all[cfg.Market] = cfg
		}
		err = rows.Err()
	})
	if serr != nil {
		return nil, false, fmt.Errorf("load market configs: %w", serr)
	}
	if err != nil {
		return nil, false, err
	}
	return all, true, nil
}

func (s *MarketConfigStore) Insert(ctx context.Context, key uuid.UUID, cfg domain.MarketConfig) error {
	return s.exec(ctx, `
		INSERT INTO market_config (market, listing_fee, tax_percent, storage_base, storage_percent, storage_free_days, slot_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.String(), cfg.ListingFee, cfg.TaxRatePercent, cfg.StorageFeeBase, cfg.StorageFeePercent, cfg.StorageFreeDays, cfg.SlotLimit)
}

func (s *MarketConfigStore) Update(ctx context.Context, key uuid.UUID, cfg domain.MarketConfig) error {
	return s.exec(ctx, `
		UPDATE market_config
		SET listing_fee = ?, tax_percent = ?, storage_base = ?, storage_percent = ?, storage_free_days = ?, slot_limit = ?
		WHERE market = ?`,
		cfg.ListingFee, cfg.TaxRatePercent, cfg.StorageFeeBase, cfg.StorageFeePercent, cfg.StorageFreeDays, cfg.SlotLimit, key.String())
}

func (s *MarketConfigStore) Remove(ctx context.Context, key uuid.UUID) error {
	return s.exec(ctx, `DELETE FROM market_config WHERE market = ?`, key.String())
}

func (s *MarketConfigStore) exec(ctx context.Context, query string, args ...any) error {
	var err error
	serr := s.worker.Submit(ctx, func() {
		if _, eerr := s.db.ExecContext(ctx, query, args...); eerr != nil {
			err = fmt.Errorf("write market config: %w", eerr)
		}
	})
	if serr != nil {
		return fmt.Errorf("write market config: %w", serr)
	}
	return err
}
