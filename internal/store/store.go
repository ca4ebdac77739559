// Package store persists comparable searches and a company cache in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"compiq/internal/comps"
)

// Store wraps the SQLite database holding search history.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// SearchSummary is one row of search history.
type SearchSummary struct {
	ID             int64     `json:"id"`
	TargetName     string    `json:"target_name"`
	Timestamp      time.Time `json:"timestamp"`
	NumComparables int       `json:"num_comparables"`
}

// SavedSearch is a fully hydrated historical search.
type SavedSearch struct {
	ID          int64                `json:"id"`
	Target      comps.Target         `json:"target"`
	Comparables []comps.Comparable   `json:"comparables"`
	Metadata    comps.SearchMetadata `json:"metadata"`
}

// CompanyInfo is a cached company row.
type CompanyInfo struct {
	Name         string                    `json:"name"`
	Ticker       string                    `json:"ticker"`
	Exchange     string                    `json:"exchange"`
	IsPublic     bool                      `json:"is_public"`
	LastVerified time.Time                 `json:"last_verified"`
	Verification *comps.VerificationRecord `json:"verification,omitempty"`
}

// CommonComparable aggregates how often a company appears in results.
type CommonComparable struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Exchange  string  `json:"exchange"`
	Frequency int     `json:"frequency"`
	AvgScore  float64 `json:"avg_score"`
}

// Stats summarizes database contents.
type Stats struct {
	TotalSearches   int `json:"total_searches"`
	UniqueCompanies int `json:"unique_companies"`
}

// New opens (or creates) the database at path and initializes schema.
func New(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("search store ready", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target_name TEXT NOT NULL,
			target_data TEXT NOT NULL,
			metadata TEXT NOT NULL,
			num_comparables INTEGER NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS comparables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			search_id INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			name TEXT NOT NULL,
			ticker TEXT NOT NULL,
			exchange TEXT NOT NULL,
			validation_score REAL NOT NULL,
			data TEXT NOT NULL,
			FOREIGN KEY (search_id) REFERENCES searches (id)
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			ticker TEXT,
			exchange TEXT,
			is_public BOOLEAN,
			last_verified DATETIME,
			verification_data TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_timestamp ON searches(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_comparables_search ON comparables(search_id)`,
		`CREATE INDEX IF NOT EXISTS idx_companies_ticker ON companies(ticker)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// SaveSearch persists a search with its ranked comparables and returns
// the search id. Every saved comparable also refreshes the company
// cache.
func (s *Store) SaveSearch(ctx context.Context, target comps.Target, result *comps.SearchResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targetJSON, err := json.Marshal(target)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal target: %w", err)
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO searches (target_name, target_data, metadata, num_comparables)
		VALUES (?, ?, ?, ?)`,
		target.Name, string(targetJSON), string(metadataJSON), len(result.Comparables))
	if err != nil {
		return 0, fmt.Errorf("failed to save search: %w", err)
	}

	searchID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get search id: %w", err)
	}

	for rank, comp := range result.Comparables {
		data, err := json.Marshal(comp)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal comparable %s: %w", comp.Ticker, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comparables (search_id, rank, name, ticker, exchange, validation_score, data)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			searchID, rank+1, comp.Name, comp.Ticker, comp.Exchange, comp.Score, string(data)); err != nil {
			return 0, fmt.Errorf("failed to save comparable %s: %w", comp.Ticker, err)
		}

		if err := upsertCompany(ctx, tx, comp.Name, comp.Ticker, comp.Exchange, true, nil); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit search: %w", err)
	}

	s.logger.Info("search saved",
		zap.Int64("search_id", searchID),
		zap.String("target", target.Name),
		zap.Int("comparables", len(result.Comparables)))
	return searchID, nil
}

// upsertCompany refreshes the company cache within a transaction.
func upsertCompany(ctx context.Context, tx *sql.Tx, name, ticker, exchange string, isPublic bool, verification *comps.VerificationRecord) error {
	var verificationJSON any
	if verification != nil {
		data, err := json.Marshal(verification)
		if err != nil {
			return fmt.Errorf("failed to marshal verification for %s: %w", ticker, err)
		}
		verificationJSON = string(data)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO companies (name, ticker, exchange, is_public, last_verified, verification_data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			ticker = excluded.ticker,
			exchange = excluded.exchange,
			is_public = excluded.is_public,
			last_verified = excluded.last_verified,
			verification_data = excluded.verification_data`,
		name, ticker, exchange, isPublic, time.Now().UTC().Format(time.RFC3339), verificationJSON)
	if err != nil {
		return fmt.Errorf("failed to update company cache for %s: %w", ticker, err)
	}
	return nil
}

// RecentSearches lists the most recent searches, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_name, timestamp, num_comparables
		FROM searches
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent searches: %w", err)
	}
	defer rows.Close()

	var out []SearchSummary
	for rows.Next() {
		var summary SearchSummary
		var ts string
		if err := rows.Scan(&summary.ID, &summary.TargetName, &ts, &summary.NumComparables); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		summary.Timestamp = parseTimestamp(ts)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// SearchByID hydrates a full historical search, or nil if absent.
func (s *Store) SearchByID(ctx context.Context, searchID int64) (*SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var targetJSON, metadataJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT target_data, metadata FROM searches WHERE id = ?`, searchID).
		Scan(&targetJSON, &metadataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load search %d: %w", searchID, err)
	}

	saved := &SavedSearch{ID: searchID}
	if err := json.Unmarshal([]byte(targetJSON), &saved.Target); err != nil {
		return nil, fmt.Errorf("failed to decode target for search %d: %w", searchID, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &saved.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for search %d: %w", searchID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM comparables WHERE search_id = ? ORDER BY rank`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparables for search %d: %w", searchID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan comparable row: %w", err)
		}
		var comp comps.Comparable
		if err := json.Unmarshal([]byte(data), &comp); err != nil {
			return nil, fmt.Errorf("failed to decode comparable: %w", err)
		}
		saved.Comparables = append(saved.Comparables, comp)
	}
	return saved, rows.Err()
}

// SearchCompanies looks up cached companies by name or ticker substring.
func (s *Store) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, ticker, exchange, is_public, last_verified
		FROM companies
		WHERE name LIKE ? OR ticker LIKE ?
		ORDER BY name
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	defer rows.Close()

	var out []CompanyInfo
	for rows.Next() {
		var info CompanyInfo
		var ticker, exchange, lastVerified sql.NullString
		var isPublic sql.NullBool
		if err := rows.Scan(&info.Name, &ticker, &exchange, &isPublic, &lastVerified); err != nil {
			return nil, fmt.Errorf("failed to scan company row: %w", err)
		}
		info.Ticker = ticker.String
		info.Exchange = exchange.String
		info.IsPublic = isPublic.Bool
		info.LastVerified = parseTimestamp(lastVerified.String)
		out = append(out, info)
	}
	return out, rows.Err()
}

// CompanyByTicker returns the cached company for a ticker, or nil.
func (s *Store) CompanyByTicker(ctx context.Context, ticker string) (*CompanyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info CompanyInfo
	var tick, exchange, lastVerified, verification sql.NullString
	var isPublic sql.NullBool
	err := s.db.QueryRowContext(ctx, `
		SELECT name, ticker, exchange, is_public, last_verified, verification_data
		FROM companies
		WHERE ticker = ?`, ticker).
		Scan(&info.Name, &tick, &exchange, &isPublic, &lastVerified, &verification)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company %s: %w", ticker, err)
	}

	info.Ticker = tick.String
	info.Exchange = exchange.String
	info.IsPublic = isPublic.Bool
	info.LastVerified = parseTimestamp(lastVerified.String)
	if verification.Valid && verification.String != "" {
		var rec comps.VerificationRecord
		if err := json.Unmarshal([]byte(verification.String), &rec); err == nil {
			info.Verification = &rec
		}
	}
	return &info, nil
}

// SimilarSearches finds prior searches whose target name matches.
func (s *Store) SimilarSearches(ctx context.Context, targetName string, limit int) ([]SearchSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_name, timestamp, num_comparables
		FROM searches
		WHERE target_name LIKE ?
		ORDER BY timestamp DESC
		LIMIT ?`, "%"+targetName+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar searches: %w", err)
	}
	defer rows.Close()

	var out []SearchSummary
	for rows.Next() {
		var summary SearchSummary
		var ts string
		if err := rows.Scan(&summary.ID, &summary.TargetName, &ts, &summary.NumComparables); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		summary.Timestamp = parseTimestamp(ts)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// MostCommonComparables lists companies that recur across searches.
func (s *Store) MostCommonComparables(ctx context.Context, limit int) ([]CommonComparable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, ticker, exchange, COUNT(*) AS frequency, AVG(validation_score) AS avg_score
		FROM comparables
		GROUP BY name, ticker, exchange
		ORDER BY frequency DESC, avg_score DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query common comparables: %w", err)
	}
	defer rows.Close()

	var out []CommonComparable
	for rows.Next() {
		var c CommonComparable
		if err := rows.Scan(&c.Name, &c.Ticker, &c.Exchange, &c.Frequency, &c.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan comparable row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetStats returns database totals.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&stats.TotalSearches); err != nil {
		return Stats{}, fmt.Errorf("failed to count searches: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT name) FROM companies`).Scan(&stats.UniqueCompanies); err != nil {
		return Stats{}, fmt.Errorf("failed to count companies: %w", err)
	}
	return stats, nil
}

// parseTimestamp handles both RFC3339 and SQLite's default format.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return time.Time{}
}
