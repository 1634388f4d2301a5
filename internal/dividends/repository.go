// Package dividends stores per-year dividend aggregates and answers
// dividend history questions about a stock.
package dividends

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"divtrack/internal/database"
)

// YearRecord is one row of the YearlyDividends table.
type YearRecord struct {
	Symbol        string   `json:"symbol"`
	Year          int      `json:"year"`
	TotalDividend float64  `json:"totalDividend"`
	PaymentCount  int      `json:"paymentCount"`
	AnnualEPS     *float64 `json:"annualEps"`
}

const yearColumns = `Symbol, Year, TotalDividend, PaymentCount, AnnualEPS`

// Repository provides access to the YearlyDividends table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new yearly dividend repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dividends").Logger(),
	}
}

// Replace rewrites the yearly history of one symbol. The old rows are
// deleted and the new totals inserted in a single transaction so a refresh
// never leaves a partial mix of old and new years behind.
func (r *Repository) Replace(symbol string, totals map[int]float64) error {
	years := make([]int, 0, len(totals))
	for year := range totals {
		years = append(years, year)
	}
	sort.Ints(years)

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM YearlyDividends WHERE Symbol = ?`, symbol); err != nil {
			return fmt.Errorf("failed to delete yearly rows: %w", err)
		}

		for _, year := range years {
			total := totals[year]
			if total <= 0 {
				continue
			}
			paymentCount := 1
			_, err := tx.Exec(
				`INSERT INTO YearlyDividends (Symbol, Year, TotalDividend, PaymentCount) VALUES (?, ?, ?, ?)`,
				symbol, year, total, paymentCount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert year %d: %w", year, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace yearly dividends for %s: %w", symbol, err)
	}

	r.log.Debug().Str("symbol", symbol).Int("years", len(years)).Msg("Yearly dividends replaced")
	return nil
}

// SetAnnualEPS stores the derived earnings per share for one year.
func (r *Repository) SetAnnualEPS(symbol string, year int, eps float64) error {
	_, err := r.db.Exec(
		`UPDATE YearlyDividends SET AnnualEPS = ? WHERE Symbol = ? AND Year = ?`,
		eps, symbol, year,
	)
	if err != nil {
		return fmt.Errorf("failed to set annual EPS for %s %d: %w", symbol, year, err)
	}
	return nil
}

// History returns the yearly records of a symbol ordered by year ascending.
func (r *Repository) History(symbol string) ([]YearRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM YearlyDividends WHERE Symbol = ? ORDER BY Year`, yearColumns)
	rows, err := r.db.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query yearly dividends: %w", err)
	}
	defer rows.Close()

	var records []YearRecord
	for rows.Next() {
		var (
			rec YearRecord
			eps sql.NullFloat64
		)
		if err := rows.Scan(&rec.Symbol, &rec.Year, &rec.TotalDividend, &rec.PaymentCount, &eps); err != nil {
			return nil, fmt.Errorf("failed to scan yearly row: %w", err)
		}
		if eps.Valid {
			v := eps.Float64
			rec.AnnualEPS = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Totals returns the yearly history keyed by year.
func (r *Repository) Totals(symbol string) (map[int]float64, error) {
	records, err := r.History(symbol)
	if err != nil {
		return nil, err
	}
	totals := make(map[int]float64, len(records))
	for _, rec := range records {
		totals[rec.Year] = rec.TotalDividend
	}
	return totals, nil
}

// CountBySymbol reports how many yearly rows each symbol has.
func (r *Repository) CountBySymbol() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT Symbol, COUNT(*) FROM YearlyDividends GROUP BY Symbol ORDER BY Symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to count yearly rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			symbol string
			count  int
		)
		if err := rows.Scan(&symbol, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[symbol] = count
	}
	return counts, rows.Err()
}
