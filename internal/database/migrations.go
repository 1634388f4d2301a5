package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// baseSchema creates every table the application relies on. All statements
// use IF NOT EXISTS so running them repeatedly is harmless.
const baseSchema = `
CREATE TABLE IF NOT EXISTS DividendModels (
    Symbol TEXT PRIMARY KEY,
    CompanyName TEXT,
    Sector TEXT,
    Industry TEXT,
    Country TEXT,
    Exchange TEXT,
    Currency TEXT,
    CurrentPrice REAL,
    DividendYield REAL,
    AnnualDividend REAL,
    PayoutRatio REAL,
    PERatio REAL,
    PBRatio REAL,
    EPS REAL,
    AnnualEPS REAL,
    BookValue REAL,
    MarketCap REAL,
    Beta REAL,
    High52Week REAL,
    Low52Week REAL,
    TotalDividend REAL,
    DividendGrowthRate REAL,
    ConsecutiveYears INTEGER,
    SafetyScore REAL,
    SafetyRating TEXT,
    Recommendation TEXT,
    ExDividendDate TEXT,
    PaymentDate TEXT,
    LastUpdated TEXT
);

CREATE TABLE IF NOT EXISTS YearlyDividends (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    Symbol TEXT NOT NULL,
    Year INTEGER NOT NULL,
    TotalDividend REAL NOT NULL DEFAULT 0,
    PaymentCount INTEGER NOT NULL DEFAULT 0,
    AnnualEPS REAL,
    UNIQUE(Symbol, Year)
);

CREATE TABLE IF NOT EXISTS IndexData (
    Symbol TEXT PRIMARY KEY,
    Name TEXT,
    Exchange TEXT,
    Currency TEXT,
    CurrentPrice REAL,
    Change REAL,
    ChangePercent REAL,
    High52Week REAL,
    Low52Week REAL,
    LastUpdated TEXT
);

CREATE TABLE IF NOT EXISTS IndexHistory (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    Symbol TEXT NOT NULL,
    Date TEXT NOT NULL,
    Open REAL,
    High REAL,
    Low REAL,
    Close REAL,
    Volume INTEGER,
    UNIQUE(Symbol, Date)
);

CREATE TABLE IF NOT EXISTS ApiUsageLogs (
    Id TEXT PRIMARY KEY,
    Endpoint TEXT NOT NULL,
    Symbol TEXT,
    Timestamp TEXT NOT NULL,
    Success INTEGER NOT NULL DEFAULT 0,
    ErrorMessage TEXT,
    DurationMs INTEGER
);

CREATE TABLE IF NOT EXISTS IndexApiUsageLogs (
    Id TEXT PRIMARY KEY,
    Endpoint TEXT NOT NULL,
    Symbol TEXT,
    Timestamp TEXT NOT NULL,
    Success INTEGER NOT NULL DEFAULT 0,
    ErrorMessage TEXT,
    DurationMs INTEGER
);

CREATE INDEX IF NOT EXISTS idx_yearly_dividends_symbol ON YearlyDividends(Symbol);
CREATE INDEX IF NOT EXISTS idx_index_history_symbol_date ON IndexHistory(Symbol, Date);
CREATE INDEX IF NOT EXISTS idx_api_usage_timestamp ON ApiUsageLogs(Timestamp);
`

// Migrate brings the database schema up to date. Safe to call any number
// of times: table creation uses IF NOT EXISTS and column changes are
// guarded by table introspection.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(baseSchema); err != nil {
		return fmt.Errorf("failed to apply base schema: %w", err)
	}

	if err := db.addColumnIfMissing("DividendModels", "AnnualEPS", "REAL"); err != nil {
		return fmt.Errorf("failed to add AnnualEPS column: %w", err)
	}

	if err := db.addColumnIfMissing("YearlyDividends", "PaymentCount", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("failed to add PaymentCount column: %w", err)
	}

	if err := db.addColumnIfMissing("YearlyDividends", "AnnualEPS", "REAL"); err != nil {
		return fmt.Errorf("failed to add AnnualEPS column: %w", err)
	}

	if err := db.fixTotalDividendType(); err != nil {
		return fmt.Errorf("failed to fix TotalDividend column type: %w", err)
	}

	return nil
}

// addColumnIfMissing adds a column only when PRAGMA table_info does not
// already report it.
func (db *DB) addColumnIfMissing(table, column, colType string) error {
	exists, _, err := db.columnInfo(table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colType)
	if _, err := db.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to alter %s: %w", table, err)
	}
	return nil
}

// fixTotalDividendType rewrites YearlyDividends if TotalDividend was created
// as TEXT by an earlier schema version. SQLite cannot alter a column type in
// place, so the table is recreated and rows copied across with a CAST.
func (db *DB) fixTotalDividendType() error {
	exists, colType, err := db.columnInfo("YearlyDividends", "TotalDividend")
	if err != nil {
		return err
	}
	if !exists || strings.EqualFold(colType, "REAL") {
		return nil
	}

	return WithTransaction(db.conn, func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE YearlyDividends_new (
				Id INTEGER PRIMARY KEY AUTOINCREMENT,
				Symbol TEXT NOT NULL,
				Year INTEGER NOT NULL,
				TotalDividend REAL NOT NULL DEFAULT 0,
				PaymentCount INTEGER NOT NULL DEFAULT 0,
				AnnualEPS REAL,
				UNIQUE(Symbol, Year)
			)`,
			`INSERT INTO YearlyDividends_new (Id, Symbol, Year, TotalDividend)
				SELECT Id, Symbol, Year, CAST(TotalDividend AS REAL) FROM YearlyDividends`,
			`DROP TABLE YearlyDividends`,
			`ALTER TABLE YearlyDividends_new RENAME TO YearlyDividends`,
			`CREATE INDEX IF NOT EXISTS idx_yearly_dividends_symbol ON YearlyDividends(Symbol)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("table rebuild step failed: %w", err)
			}
		}
		return nil
	})
}

// columnInfo reports whether a column exists and its declared type.
func (db *DB) columnInfo(table, column string) (bool, string, error) {
	rows, err := db.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, "", fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, "", fmt.Errorf("failed to scan table_info row: %w", err)
		}
		if strings.EqualFold(name, column) {
			return true, colType, nil
		}
	}
	return false, "", rows.Err()
}

// ClearAllData deletes every row from every application table while keeping
// the schema intact. AUTOINCREMENT counters are reset where present.
func (db *DB) ClearAllData() error {
	tables := []string{
		"YearlyDividends",
		"DividendModels",
		"IndexHistory",
		"IndexData",
		"ApiUsageLogs",
		"IndexApiUsageLogs",
	}

	return WithTransaction(db.conn, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		// sqlite_sequence only exists once an AUTOINCREMENT insert happened
		if _, err := tx.Exec("DELETE FROM sqlite_sequence"); err != nil {
			if !strings.Contains(err.Error(), "no such table") {
				return fmt.Errorf("failed to reset sequences: %w", err)
			}
		}
		return nil
	})
}
