package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Repository struct {
	Db *Database
}

func NewRepository(db *Database) *Repository {
	return &Repository{Db: db}
}

// HasData reports whether a document was ever saved into this database.
func (r *Repository) HasData() (bool, error) {
	var count int
	if err := r.Db.db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasLegacySchema reports whether daily_data still carries the column
// layout of the first SQLite release (slot_5_6_am and friends).
func (r *Repository) HasLegacySchema() (bool, error) {
	columns, err := r.tableColumns("daily_data")
	if err != nil {
		return false, err
	}
	for _, column := range columns {
		if column == BucketColumns[Slot0506] {
			return false, nil
		}
	}
	return len(columns) > 0, nil
}

func (r *Repository) tableColumns(table string) ([]string, error) {
	rows, err := r.Db.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name, kind string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &kind, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// LoadLegacyDocument reads a first-release database. Bucket columns are
// keyed by their old column names so the migrator can fold them through the
// alias table. Weekly rollups are not read; they are rebuilt from the days.
func (r *Repository) LoadLegacyDocument() (*Document, error) {
	doc := &Document{
		DailyData:  make(map[string]*DailyRecord),
		WeeklyData: []*WeeklyRecord{},
		Settings:   make(Settings),
	}

	columns, err := r.tableColumns("daily_data")
	if err != nil {
		return nil, err
	}
	var buckets []string
	hasNotes, hasTotal := false, false
	for _, column := range columns {
		switch {
		case strings.HasPrefix(column, "slot_"), column == "other_time":
			buckets = append(buckets, column)
		case column == "notes":
			hasNotes = true
		case column == "total_minutes":
			hasTotal = true
		}
	}

	selected := append([]string{"date"}, buckets...)
	if hasTotal {
		selected = append(selected, "total_minutes")
	}
	if hasNotes {
		selected = append(selected, "notes")
	}

	rows, err := r.Db.db.Query(fmt.Sprintf(`SELECT %s FROM daily_data ORDER BY date`, strings.Join(selected, ", ")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date  string
			total sql.NullInt64
			notes sql.NullString
		)
		values := make([]sql.NullInt64, len(buckets))
		dest := []any{&date}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if hasTotal {
			dest = append(dest, &total)
		}
		if hasNotes {
			dest = append(dest, &notes)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		rec := &DailyRecord{Date: date, Slots: make(Slots, len(buckets)), Notes: notes.String}
		for i, column := range buckets {
			rec.Slots[BucketID(column)] = int(values[i].Int64)
		}
		rec.TotalMinutes = int(total.Int64)
		doc.DailyData[date] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadSettings(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadDocument reads every table into one document.
func (r *Repository) LoadDocument() (*Document, error) {
	doc := &Document{
		DailyData:  make(map[string]*DailyRecord),
		WeeklyData: []*WeeklyRecord{},
		Settings:   make(Settings),
	}

	if err := r.loadMetadata(doc); err != nil {
		return nil, err
	}
	if err := r.loadDaily(doc); err != nil {
		return nil, err
	}
	if err := r.loadWeekly(doc); err != nil {
		return nil, err
	}
	if err := r.loadSettings(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *Repository) loadMetadata(doc *Document) error {
	rows, err := r.Db.db.Query(`SELECT key, value FROM metadata`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case "version":
			doc.Metadata.Version = value
		case "created":
			doc.Metadata.Created, err = time.Parse(time.RFC3339Nano, value)
		case "lastModified":
			doc.Metadata.LastModified, err = time.Parse(time.RFC3339Nano, value)
		}
		if err != nil {
			return fmt.Errorf("metadata %s: %w", key, err)
		}
	}
	return rows.Err()
}

func (r *Repository) loadDaily(doc *Document) error {
	columns := make([]string, 0, len(Buckets))
	for _, id := range Buckets {
		columns = append(columns, BucketColumns[id])
	}

	rows, err := r.Db.db.Query(fmt.Sprintf(`
		SELECT date, day_name, %s, total_minutes, notes
		FROM daily_data
		ORDER BY date
	`, strings.Join(columns, ", ")))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec := &DailyRecord{Slots: make(Slots, len(Buckets))}
		values := make([]int, len(Buckets))
		dest := []any{&rec.Date, &rec.DayName}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &rec.TotalMinutes, &rec.Notes)

		if err := rows.Scan(dest...); err != nil {
			return err
		}
		for i, id := range Buckets {
			rec.Slots[id] = values[i]
		}
		doc.DailyData[rec.Date] = rec
	}
	return rows.Err()
}

func (r *Repository) loadWeekly(doc *Document) error {
	rows, err := r.Db.db.Query(`
		SELECT year, week_number, date_range, total_minutes, total_hours, days_with_data, rank
		FROM weekly_data
		ORDER BY position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var week WeeklyRecord
		err := rows.Scan(
			&week.Year,
			&week.WeekNumber,
			&week.DateRange,
			&week.TotalMinutes,
			&week.TotalHours,
			&week.DaysWithData,
			&week.Rank,
		)
		if err != nil {
			return err
		}
		doc.WeeklyData = append(doc.WeeklyData, &week)
	}
	return rows.Err()
}

func (r *Repository) loadSettings(doc *Document) error {
	rows, err := r.Db.db.Query(`SELECT setting_name, setting_value FROM settings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		doc.Settings[name] = value
	}
	return rows.Err()
}

// SaveDocument replaces the content of every table inside one transaction,
// so readers see either the old store or the new one.
func (r *Repository) SaveDocument(doc *Document) error {
	return r.saveDocument(doc, false)
}

// RebuildDocument drops the first-release tables, recreates the current
// schema and saves doc, all in one transaction.
func (r *Repository) RebuildDocument(doc *Document) error {
	return r.saveDocument(doc, true)
}

func (r *Repository) saveDocument(doc *Document, rebuild bool) (err error) {
	tx, err := r.Db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if rebuild {
		for _, table := range legacyTables {
			if _, err = tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return err
			}
		}
		for _, query := range schemaQueries() {
			if _, err = tx.Exec(query); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
	}

	for _, table := range []string{"daily_data", "weekly_data", "settings", "metadata"} {
		if _, err = tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	if err = saveDaily(tx, doc); err != nil {
		return err
	}

	for position, week := range doc.WeeklyData {
		_, err = tx.Exec(`
			INSERT INTO weekly_data
			(year, week_number, date_range, total_minutes, total_hours, days_with_data, rank, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, week.Year, week.WeekNumber, week.DateRange, week.TotalMinutes, week.TotalHours, week.DaysWithData, week.Rank, position)
		if err != nil {
			return err
		}
	}

	for name, value := range doc.Settings {
		if _, err = tx.Exec(`INSERT INTO settings (setting_name, setting_value) VALUES (?, ?)`, name, value); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"version":      doc.Metadata.Version,
		"created":      doc.Metadata.Created.UTC().Format(time.RFC3339Nano),
		"lastModified": doc.Metadata.LastModified.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err = tx.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveDaily(tx *sql.Tx, doc *Document) error {
	columns := []string{"date", "day_name"}
	for _, id := range Buckets {
		columns = append(columns, BucketColumns[id])
	}
	columns = append(columns, "total_minutes", "notes")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO daily_data (%s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for date, rec := range doc.DailyData {
		args := []any{date, rec.DayName}
		for _, id := range Buckets {
			args = append(args, rec.Slots[id])
		}
		args = append(args, rec.TotalMinutes, rec.Notes)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("day %s: %w", date, err)
		}
	}
	return nil
}

// VacuumInto writes a consistent copy of the live database to path.
func (r *Repository) VacuumInto(path string) error {
	_, err := r.Db.db.Exec(`VACUUM INTO ?`, path)
	return err
}

// SQLiteStore keeps the whole document in a SQLite file. The database is
// opened lazily so that an unreadable file can be backed up and replaced.
type SQLiteStore struct {
	path string
	db   *Database
	repo *Repository
	// legacy is set while the file still has the first-release layout.
	legacy bool
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) open() error {
	if s.repo != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := New(s.path)
	if err != nil {
		return err
	}
	s.db = db
	s.repo = NewRepository(db)
	return nil
}

// Load returns ErrNotFound when nothing was saved yet.
func (s *SQLiteStore) Load() (*Document, error) {
	if err := s.open(); err != nil {
		return nil, &PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	legacy, err := s.repo.HasLegacySchema()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	if legacy {
		doc, err := s.repo.LoadLegacyDocument()
		if err != nil {
			return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
		}
		s.legacy = true
		log.Printf("📦 Legacy database layout found in %s (%d days), it is rebuilt on the next save", s.path, len(doc.DailyData))
		return doc, nil
	}

	ok, err := s.repo.HasData()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	if !ok {
		return nil, ErrNotFound
	}
	doc, err := s.repo.LoadDocument()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	return doc, nil
}

func (s *SQLiteStore) Save(doc *Document) error {
	if err := s.open(); err != nil {
		return &PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	if s.legacy {
		if err := s.repo.RebuildDocument(doc); err != nil {
			return &PersistenceError{Op: "save", Path: s.path, Err: err}
		}
		s.legacy = false
		log.Printf("✅ Database rebuilt with the current layout: %s", s.path)
		return nil
	}
	if err := s.repo.SaveDocument(doc); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

// Legacy reports whether the loaded file still needs its schema rebuilt.
func (s *SQLiteStore) Legacy() bool {
	return s.legacy
}

// Backup prefers VACUUM INTO on a healthy database and falls back to a raw
// file copy when the database cannot be opened.
func (s *SQLiteStore) Backup(dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Op: "backup", Path: dir, Err: err}
	}
	dst := backupPath(dir, at, ".db")

	if s.repo != nil {
		if err := s.repo.VacuumInto(dst); err == nil {
			return dst, nil
		}
		os.Remove(dst)
	}
	if err := copyFile(s.path, dst); err != nil {
		return "", &PersistenceError{Op: "backup", Path: dst, Err: err}
	}
	return dst, nil
}

// Reset drops the current file so the next Save starts a new database.
func (s *SQLiteStore) Reset() error {
	if err := s.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(s.path + suffix); err != nil && !os.IsNotExist(err) {
			return &PersistenceError{Op: "reset", Path: s.path + suffix, Err: err}
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.repo = nil
	s.legacy = false
	return err
}
