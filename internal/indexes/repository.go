// Package indexes stores market index quotes and their price history.
package indexes

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/database"
	"divtrack/internal/marketdata"
)

// ErrNotFound is returned when an index symbol has no row.
var ErrNotFound = errors.New("index not found")

// Index is one row of the IndexData table.
type Index struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Exchange      string     `json:"exchange"`
	Currency      string     `json:"currency"`
	CurrentPrice  *float64   `json:"currentPrice"`
	Change        *float64   `json:"change"`
	ChangePercent *float64   `json:"changePercent"`
	High52Week    *float64   `json:"high52Week"`
	Low52Week     *float64   `json:"low52Week"`
	LastUpdated   *time.Time `json:"lastUpdated"`
}

const indexColumns = `Symbol, Name, Exchange, Currency, CurrentPrice, Change, ChangePercent, High52Week, Low52Week, LastUpdated`

// Repository provides access to the IndexData and IndexHistory tables.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new index repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "indexes").Logger(),
	}
}

// Upsert inserts or replaces one index row.
func (r *Repository) Upsert(idx *Index) error {
	query := fmt.Sprintf(`INSERT INTO IndexData (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(Symbol) DO UPDATE SET
			Name = excluded.Name,
			Exchange = excluded.Exchange,
			Currency = excluded.Currency,
			CurrentPrice = excluded.CurrentPrice,
			Change = excluded.Change,
			ChangePercent = excluded.ChangePercent,
			High52Week = excluded.High52Week,
			Low52Week = excluded.Low52Week,
			LastUpdated = excluded.LastUpdated`, indexColumns)

	_, err := r.db.Exec(query,
		idx.Symbol,
		nullString(idx.Name),
		nullString(idx.Exchange),
		nullString(idx.Currency),
		nullFloat(idx.CurrentPrice),
		nullFloat(idx.Change),
		nullFloat(idx.ChangePercent),
		nullFloat(idx.High52Week),
		nullFloat(idx.Low52Week),
		nullTime(idx.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert index %s: %w", idx.Symbol, err)
	}
	return nil
}

// GetBySymbol returns one index row or ErrNotFound.
func (r *Repository) GetBySymbol(symbol string) (*Index, error) {
	query := fmt.Sprintf(`SELECT %s FROM IndexData WHERE Symbol = ?`, indexColumns)

	var (
		idx                                     Index
		name, exchange, currency, lastUpdated   sql.NullString
		price, change, changePct, high52, low52 sql.NullFloat64
	)
	err := r.db.QueryRow(query, symbol).Scan(
		&idx.Symbol, &name, &exchange, &currency,
		&price, &change, &changePct, &high52, &low52, &lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index %s: %w", symbol, err)
	}

	idx.Name = name.String
	idx.Exchange = exchange.String
	idx.Currency = currency.String
	idx.CurrentPrice = floatPtr(price)
	idx.Change = floatPtr(change)
	idx.ChangePercent = floatPtr(changePct)
	idx.High52Week = floatPtr(high52)
	idx.Low52Week = floatPtr(low52)
	if lastUpdated.Valid {
		if ts, err := time.Parse(time.RFC3339, lastUpdated.String); err == nil {
			idx.LastUpdated = &ts
		}
	}
	return &idx, nil
}

// SaveHistory stores candles for a symbol. Existing (Symbol, Date) rows are
// overwritten so re-fetching a range is safe.
func (r *Repository) SaveHistory(symbol string, candles []marketdata.Candle) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO IndexHistory
			(Symbol, Date, Open, High, Low, Close, Volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare history insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range candles {
			_, err := stmt.Exec(symbol, c.Date.UTC().Format("2006-01-02"),
				c.Open, c.High, c.Low, c.Close, c.Volume)
			if err != nil {
				return fmt.Errorf("failed to insert history row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save history for %s: %w", symbol, err)
	}

	r.log.Debug().Str("symbol", symbol).Int("rows", len(candles)).Msg("Index history saved")
	return nil
}

// History returns stored candles for a symbol ordered by date ascending.
// Zero time bounds mean unbounded.
func (r *Repository) History(symbol string, from, to time.Time) ([]marketdata.Candle, error) {
	query := `SELECT Date, Open, High, Low, Close, Volume FROM IndexHistory WHERE Symbol = ?`
	args := []interface{}{symbol}

	if !from.IsZero() {
		query += ` AND Date >= ?`
		args = append(args, from.UTC().Format("2006-01-02"))
	}
	if !to.IsZero() {
		query += ` AND Date <= ?`
		args = append(args, to.UTC().Format("2006-01-02"))
	}
	query += ` ORDER BY Date`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var candles []marketdata.Candle
	for rows.Next() {
		var (
			date                     string
			open, high, low, closePx sql.NullFloat64
			volume                   sql.NullInt64
		)
		if err := rows.Scan(&date, &open, &high, &low, &closePx, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		candles = append(candles, marketdata.Candle{
			Date:   d,
			Open:   open.Float64,
			High:   high.Float64,
			Low:    low.Float64,
			Close:  closePx.Float64,
			Volume: volume.Int64,
		})
	}
	return candles, rows.Err()
}

// HistoryCount returns the number of stored rows for a symbol.
func (r *Repository) HistoryCount(symbol string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM IndexHistory WHERE Symbol = ?`, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history rows: %w", err)
	}
	return count, nil
}

// List returns every stored index ordered by symbol.
func (r *Repository) List() ([]*Index, error) {
	rows, err := r.db.Query(`SELECT Symbol FROM IndexData ORDER BY Symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]*Index, 0, len(symbols))
	for _, s := range symbols {
		idx, err := r.GetBySymbol(s)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
