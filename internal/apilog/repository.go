// Package apilog records remote API usage for audit and rate-limit review.
package apilog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Entry is one logged API call.
type Entry struct {
	ID           string
	Endpoint     string
	Symbol       string
	Timestamp    time.Time
	Success      bool
	ErrorMessage string
	DurationMs   int64
}

const entryColumns = `Id, Endpoint, Symbol, Timestamp, Success, ErrorMessage, DurationMs`

// Repository provides access to the ApiUsageLogs tables.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new API usage log repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "apilog").Logger(),
	}
}

// tableFor routes index symbols to IndexApiUsageLogs, everything else to
// ApiUsageLogs.
func tableFor(symbol string) string {
	if strings.HasPrefix(symbol, "^") {
		return "IndexApiUsageLogs"
	}
	return "ApiUsageLogs"
}

// Record implements marketdata.UsageRecorder. Logging failures are reported
// to the logger only so a full audit table never blocks a fetch.
func (r *Repository) Record(endpoint, symbol string, success bool, errMsg string, duration time.Duration) {
	entry := Entry{
		ID:           uuid.New().String(),
		Endpoint:     endpoint,
		Symbol:       symbol,
		Timestamp:    time.Now().UTC(),
		Success:      success,
		ErrorMessage: errMsg,
		DurationMs:   duration.Milliseconds(),
	}

	if err := r.insert(tableFor(symbol), entry); err != nil {
		r.log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to record API usage")
	}
}

func (r *Repository) insert(table string, e Entry) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, table, entryColumns)
	_, err := r.db.Exec(query,
		e.ID,
		e.Endpoint,
		nullString(e.Symbol),
		e.Timestamp.Format(time.RFC3339),
		boolToInt(e.Success),
		nullString(e.ErrorMessage),
		e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries from a table, newest first.
func (r *Repository) Recent(table string, limit int) ([]Entry, error) {
	if table != "ApiUsageLogs" && table != "IndexApiUsageLogs" {
		return nil, fmt.Errorf("unknown usage table: %s", table)
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY Timestamp DESC LIMIT ?`, entryColumns, table)
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// FailureCountSince counts failed calls recorded after the cutoff.
func (r *Repository) FailureCountSince(table string, cutoff time.Time) (int, error) {
	if table != "ApiUsageLogs" && table != "IndexApiUsageLogs" {
		return 0, fmt.Errorf("unknown usage table: %s", table)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE Success = 0 AND Timestamp >= ?`, table)
	var count int
	err := r.db.QueryRow(query, cutoff.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		symbol     sql.NullString
		timestamp  string
		success    int
		errMessage sql.NullString
		durationMs sql.NullInt64
	)

	if err := rows.Scan(&e.ID, &e.Endpoint, &symbol, &timestamp, &success, &errMessage, &durationMs); err != nil {
		return Entry{}, fmt.Errorf("failed to scan usage entry: %w", err)
	}

	if symbol.Valid {
		e.Symbol = symbol.String
	}
	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		e.Timestamp = ts
	}
	e.Success = success != 0
	if errMessage.Valid {
		e.ErrorMessage = errMessage.String
	}
	if durationMs.Valid {
		e.DurationMs = durationMs.Int64
	}

	return e, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
