// Package storage provides the SQL persistence adapters. Every statement runs
// on a single serialized worker, so no two writers ever touch the store
// concurrently. The SQL sticks to driver-agnostic syntax and explicit
// millisecond timestamps; it works unchanged on MySQL and SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/port"
	"github.com/hmkt/market/internal/worker"
)

type ListingStore struct {
	db     *sql.DB
	worker *worker.Serial
	clock  port.Clock
}

func NewListingStore(db *sql.DB, w *worker.Serial, clock port.Clock) *ListingStore {
	return &ListingStore{db: db, worker: w, clock: clock}
}

const listingColumns = "item_id, payload, amount, owner, market, price, created_at, updated_at, description"

func scanListing(scan func(...any) error) (domain.Listing, error) {
	var (
		l           domain.Listing
		owner       string
		market      string
		description sql.NullString
	)
	if err := scan(&l.ItemID, &l.Payload, &l.Amount, &owner, &market, &l.Price, &l.CreatedAt, &l.UpdatedAt, &description); err != nil {
		return domain.Listing{}, err
	}
	var err error
	if l.Owner, err = uuid.Parse(owner); err != nil {
		return domain.Listing{}, fmt.Errorf("parse owner: %w", err)
	}
	if l.Market, err = uuid.Parse(market); err != nil {
		return domain.Listing{}, fmt.Errorf("parse market: %w", err)
	}
	l.Description = description.String
	return l, nil
}

// Create counts the capacity subject and inserts inside one transaction; the
// serialized worker makes the count-then-insert race-free even across
// processes sharing a worker, the transaction keeps it atomic in the store.
func (s *ListingStore) Create(ctx context.Context, payload string, qty int, owner, market uuid.UUID, price float64, capacity int) (int64, bool, error) {
	var (
		id  int64
		ok  bool
		err error
	)
	serr := s.worker.Submit(ctx, func() {
		id, ok, err = s.create(ctx, payload, qty, owner, market, price, capacity)
	})
	if serr != nil {
		return 0, false, fmt.Errorf("create listing: %w", serr)
	}
	return id, ok, err
}

func (s *ListingStore) create(ctx context.Context, payload string, qty int, owner, market uuid.UUID, price float64, capacity int) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The system market caps listings per owner; a signshop market caps the
	// market as a whole.
	var count int
	if domain.IsSystemMarket(market) {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM shop_item WHERE market = ? AND owner = ?`,
			market.String(), owner.String()).Scan(&count)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM shop_item WHERE market = ?`,
			market.String()).Scan(&count)
	}
	if err != nil {
		return 0, false, fmt.Errorf("count listings: %w", err)
	}
	if count >= capacity {
		return 0, false, nil
	}

	now := s.clock.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO shop_item (payload, amount, owner, market, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payload, qty, owner.String(), market.String(), price, now, now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert listing: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("listing id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return id, true, nil
}

// Get returns the listing or nil when absent.
func (s *ListingStore) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	var (
		listing *domain.Listing
		err     error
	)
	serr := s.worker.Submit(ctx, func() {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+listingColumns+` FROM shop_item WHERE item_id = ?`, id)
		var l domain.Listing
		l, err = scanListing(row.Scan)
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return
		}
		if err != nil {
			err = fmt.Errorf("query listing: %w", err)
			return
		}
		listing = &l
	})
	if serr != nil {
		return nil, fmt.Errorf("get listing: %w", serr)
	}
	return listing, err
}

// List returns a market's listings ordered by id. Sold-out rows are excluded
// and reaped on the worker behind the caller's back.
func (s *ListingStore) List(ctx context.Context, market uuid.UUID) ([]domain.Listing, error) {
	var (
		listings []domain.Listing
		dead     []int64
		err      error
	)
	serr := s.worker.Submit(ctx, func() {
		listings, dead, err = s.list(ctx, market)
	})
	if serr != nil {
		return nil, fmt.Errorf("list listings: %w", serr)
	}
	if err != nil {
		return nil, err
	}
	if len(dead) > 0 {
		go s.reap(dead)
	}
	return listings, nil
}

func (s *ListingStore) list(ctx context.Context, market uuid.UUID) ([]domain.Listing, []int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM shop_item WHERE market = ? ORDER BY item_id`,
		market.String())
	if err != nil {
		return nil, nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	var dead []int64
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, nil, fmt.Errorf("scan listing: %w", err)
		}
		if l.Amount <= 0 {
			dead = append(dead, l.ItemID)
			continue
		}
		listings = append(listings, l)
	}
	return listings, dead, rows.Err()
}

// reap deletes sold-out rows found by List.
func (s *ListingStore) reap(ids []int64) {
	ctx := context.Background()
	for _, id := range ids {
		id := id
		if err := s.worker.Submit(ctx, func() {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM shop_item WHERE item_id = ? AND amount <= 0`, id); err != nil {
				log.Printf("storage: failed to reap sold-out listing %d: %v", id, err)
			}
		}); err != nil {
			log.Printf("storage: reap of listing %d not scheduled: %v", id, err)
		}
	}
}

// DecrementQuantity is the conditional commit of a buy: it succeeds only
// while the price still matches the buyer's quote and enough stock remains.
func (s *ListingStore) DecrementQuantity(ctx context.Context, id int64, amount int, expectedPrice float64) (bool, error) {
	var (
		ok  bool
		err error
	)
	serr := s.worker.Submit(ctx, func() {
		var result sql.Result
		result, err = s.db.ExecContext(ctx, `
			UPDATE shop_item SET amount = amount - ?
			WHERE item_id = ? AND amount >= ? AND price = ?`,
			amount, id, amount, expectedPrice,
		)
		if err != nil {
			err = fmt.Errorf("decrement quantity: %w", err)
			return
		}
		rows, _ := result.RowsAffected()
		ok = rows > 0
	})
	if serr != nil {
		return false, fmt.Errorf("decrement quantity: %w", serr)
	}
	return ok, err
}

// Delete removes a listing, returning the number of rows affected.
func (s *ListingStore) Delete(ctx context.Context, id int64) (int64, error) {
	var (
		rows int64
		err  error
	)
	serr := s.worker.Submit(ctx, func() {
		var result sql.Result
		result, err = s.db.ExecContext(ctx, `DELETE FROM shop_item WHERE item_id = ?`, id)
		if err != nil {
			err = fmt.Errorf("delete listing: %w", err)
			return
		}
		rows, _ = result.RowsAffected()
	})
	if serr != nil {
		return 0, fmt.Errorf("delete listing: %w", serr)
	}
	return rows, err
}

// Count returns the number of listings in a market.
func (s *ListingStore) Count(ctx context.Context, market uuid.UUID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM shop_item WHERE market = ?`, market.String())
}

// CountByOwner returns the number of listings one owner has in a market.
func (s *ListingStore) CountByOwner(ctx context.Context, market, owner uuid.UUID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM shop_item WHERE market = ? AND owner = ?`, market.String(), owner.String())
}

func (s *ListingStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var (
		count int
		err   error
	)
	serr := s.worker.Submit(ctx, func() {
		err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
		if err != nil {
			err = fmt.Errorf("count listings: %w", err)
		}
	})
	if serr != nil {
		return 0, fmt.Errorf("count listings: %w", serr)
	}
	return count, err
}

// ListNeedingUpdate returns listings whose paid-through marker is at or
// before since, ordered by id.
func (s *ListingStore) ListNeedingUpdate(ctx context.Context, since int64) ([]domain.Listing, error) {
	var (
		listings []domain.Listing
		err      error
	)
	serr := s.worker.Submit(ctx, func() {
		var rows *sql.Rows
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+listingColumns+` FROM shop_item WHERE updated_at <= ? ORDER BY item_id`, since)
		if err != nil {
			err = fmt.Errorf("query stale listings: %w", err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var l domain.Listing
			if l, err = scanListing(rows.Scan); err != nil {
				err = fmt.Errorf("scan listing: %w", err)
				return
			}
			listings = append(listings, l)
		}
		err = rows.Err()
	})
	if serr != nil {
		return nil, fmt.Errorf("list stale listings: %w", serr)
	}
	return listings, err
}

// TouchUpdatedAt advances a listing's paid-through marker.
func (s *ListingStore) TouchUpdatedAt(ctx context.Context, id int64, ts int64) (int64, error) {
	var (
		rows int64
		err  error
	)
	serr := s.worker.Submit(ctx, func() {
		var result sql.Result
		result, err = s.db.ExecContext(ctx, `UPDATE shop_item SET updated_at = ? WHERE item_id = ?`, ts, id)
		if err != nil {
			err = fmt.Errorf("touch listing: %w", err)
			return
		}
		rows, _ = result.RowsAffected()
	})
	if serr != nil {
		return 0, fmt.Errorf("touch listing: %w", serr)
	}
	return rows, err
}
