package stocks

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a symbol has no row.
var ErrNotFound = errors.New("stock not found")

const stockColumns = `Symbol, CompanyName, Sector, Industry, Country, Exchange, Currency,
	CurrentPrice, DividendYield, AnnualDividend, PayoutRatio, PERatio, PBRatio,
	EPS, AnnualEPS, BookValue, MarketCap, Beta, High52Week, Low52Week,
	TotalDividend, DividendGrowthRate, ConsecutiveYears,
	SafetyScore, SafetyRating, Recommendation,
	ExDividendDate, PaymentDate, LastUpdated`

const dateLayout = "2006-01-02"

// Repository provides access to the DividendModels table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new stock repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "stocks").Logger(),
	}
}

// Upsert inserts a stock or replaces every column of the existing row.
func (r *Repository) Upsert(s *Stock) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 29), ", ")
	query := fmt.Sprintf(`INSERT INTO DividendModels (%s) VALUES (%s)
		ON CONFLICT(Symbol) DO UPDATE SET
			CompanyName = excluded.CompanyName,
			Sector = excluded.Sector,
			Industry = excluded.Industry,
			Country = excluded.Country,
			Exchange = excluded.Exchange,
			Currency = excluded.Currency,
			CurrentPrice = excluded.CurrentPrice,
			DividendYield = excluded.DividendYield,
			AnnualDividend = excluded.AnnualDividend,
			PayoutRatio = excluded.PayoutRatio,
			PERatio = excluded.PERatio,
			PBRatio = excluded.PBRatio,
			EPS = excluded.EPS,
			AnnualEPS = excluded.AnnualEPS,
			BookValue = excluded.BookValue,
			MarketCap = excluded.MarketCap,
			Beta = excluded.Beta,
			High52Week = excluded.High52Week,
			Low52Week = excluded.Low52Week,
			TotalDividend = excluded.TotalDividend,
			DividendGrowthRate = excluded.DividendGrowthRate,
			ConsecutiveYears = excluded.ConsecutiveYears,
			SafetyScore = excluded.SafetyScore,
			SafetyRating = excluded.SafetyRating,
			Recommendation = excluded.Recommendation,
			ExDividendDate = excluded.ExDividendDate,
			PaymentDate = excluded.PaymentDate,
			LastUpdated = excluded.LastUpdated`,
		stockColumns, placeholders)

	_, err := r.db.Exec(query,
		s.Symbol,
		nullString(s.CompanyName),
		nullString(s.Sector),
		nullString(s.Industry),
		nullString(s.Country),
		nullString(s.Exchange),
		nullString(s.Currency),
		nullFloat(s.CurrentPrice),
		nullFloat(s.DividendYield),
		nullFloat(s.AnnualDividend),
		nullFloat(s.PayoutRatio),
		nullFloat(s.PERatio),
		nullFloat(s.PBRatio),
		nullFloat(s.EPS),
		nullFloat(s.AnnualEPS),
		nullFloat(s.BookValue),
		nullFloat(s.MarketCap),
		nullFloat(s.Beta),
		nullFloat(s.High52Week),
		nullFloat(s.Low52Week),
		nullFloat(s.TotalDividend),
		nullFloat(s.DividendGrowthRate),
		s.ConsecutiveYears,
		nullFloat(s.SafetyScore),
		nullString(s.SafetyRating),
		nullString(s.Recommendation),
		nullDate(s.ExDividendDate),
		nullDate(s.PaymentDate),
		nullDateTime(s.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stock %s: %w", s.Symbol, err)
	}
	return nil
}

// GetBySymbol returns one stock or ErrNotFound.
func (r *Repository) GetBySymbol(symbol string) (*Stock, error) {
	query := fmt.Sprintf(`SELECT %s FROM DividendModels WHERE Symbol = ?`, stockColumns)
	row := r.db.QueryRow(query, symbol)

	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", symbol, err)
	}
	return stock, nil
}

// Exists reports whether a symbol already has a row.
func (r *Repository) Exists(symbol string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM DividendModels WHERE Symbol = ?`, symbol).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check stock existence: %w", err)
	}
	return count > 0, nil
}

// Filter narrows List results. Zero values mean no constraint.
type Filter struct {
	Sector         string
	MinYield       float64
	MinSafetyScore float64
	Limit          int
}

// List returns stocks matching the filter, ordered by symbol.
func (r *Repository) List(f Filter) ([]*Stock, error) {
	query := fmt.Sprintf(`SELECT %s FROM DividendModels`, stockColumns)
	var conditions []string
	var args []interface{}

	if f.Sector != "" {
		conditions = append(conditions, "Sector = ?")
		args = append(args, f.Sector)
	}
	if f.MinYield > 0 {
		conditions = append(conditions, "DividendYield >= ?")
		args = append(args, f.MinYield)
	}
	if f.MinSafetyScore > 0 {
		conditions = append(conditions, "SafetyScore >= ?")
		args = append(args, f.MinSafetyScore)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY Symbol"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

// GetAll returns every stock ordered by symbol.
func (r *Repository) GetAll() ([]*Stock, error) {
	return r.List(Filter{})
}

// Symbols returns every stored symbol ordered alphabetically.
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT Symbol FROM DividendModels ORDER BY Symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
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
	return symbols, rows.Err()
}

// Count returns the number of stored stocks.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM DividendModels`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stocks: %w", err)
	}
	return count, nil
}

// Delete removes one stock row. Deleting a missing symbol is not an error.
func (r *Repository) Delete(symbol string) error {
	if _, err := r.db.Exec(`DELETE FROM DividendModels WHERE Symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to delete stock %s: %w", symbol, err)
	}
	return nil
}

// UpdateSafety rewrites only the scoring columns of an existing row.
func (r *Repository) UpdateSafety(symbol string, score float64, rating, recommendation string) error {
	result, err := r.db.Exec(
		`UPDATE DividendModels SET SafetyScore = ?, SafetyRating = ?, Recommendation = ? WHERE Symbol = ?`,
		score, rating, recommendation, symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update safety for %s: %w", symbol, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row scanner) (*Stock, error) {
	var (
		s                                                Stock
		companyName, sector, industry, country           sql.NullString
		exchange, currency, rating, recommendation       sql.NullString
		exDividendDate, paymentDate, lastUpdated         sql.NullString
		price, yield, annualDiv, payout, pe, pb          sql.NullFloat64
		eps, annualEPS, bookValue, marketCap, beta       sql.NullFloat64
		high52, low52, totalDiv, growthRate, safetyScore sql.NullFloat64
		consecutiveYears                                 sql.NullInt64
	)

	err := row.Scan(
		&s.Symbol, &companyName, &sector, &industry, &country, &exchange, &currency,
		&price, &yield, &annualDiv, &payout, &pe, &pb,
		&eps, &annualEPS, &bookValue, &marketCap, &beta, &high52, &low52,
		&totalDiv, &growthRate, &consecutiveYears,
		&safetyScore, &rating, &recommendation,
		&exDividendDate, &paymentDate, &lastUpdated,
	)
	if err != nil {
		return nil, err
	}

	s.CompanyName = companyName.String
	s.Sector = sector.String
	s.Industry = industry.String
	s.Country = country.String
	s.Exchange = exchange.String
	s.Currency = currency.String
	s.SafetyRating = rating.String
	s.Recommendation = recommendation.String
	s.CurrentPrice = floatPtr(price)
	s.DividendYield = floatPtr(yield)
	s.AnnualDividend = floatPtr(annualDiv)
	s.PayoutRatio = floatPtr(payout)
	s.PERatio = floatPtr(pe)
	s.PBRatio = floatPtr(pb)
	s.EPS = floatPtr(eps)
	s.AnnualEPS = floatPtr(annualEPS)
	s.BookValue = floatPtr(bookValue)
	s.MarketCap = floatPtr(marketCap)
	s.Beta = floatPtr(beta)
	s.High52Week = floatPtr(high52)
	s.Low52Week = floatPtr(low52)
	s.TotalDividend = floatPtr(totalDiv)
	s.DividendGrowthRate = floatPtr(growthRate)
	s.ConsecutiveYears = int(consecutiveYears.Int64)
	s.SafetyScore = floatPtr(safetyScore)
	s.ExDividendDate = parseDate(exDividendDate, dateLayout)
	s.PaymentDate = parseDate(paymentDate, dateLayout)
	s.LastUpdated = parseDate(lastUpdated, time.RFC3339)

	return &s, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseDate(v sql.NullString, layout string) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(layout, v.String)
	if err != nil {
		return nil
	}
	return &t
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

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func nullDateTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
