package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db   *sql.DB
	path string
}

func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer, and ":memory:" must not fan out into separate databases
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	d := &Database{db: db, path: path}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("✅ Database initialized: %s", path)
	return d, nil
}

func (d *Database) init() error {
	for _, query := range schemaQueries() {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	return nil
}

// legacyTables are the tables the first SQLite release created with a
// different column layout. They are dropped and recreated on upgrade.
var legacyTables = []string{"daily_data", "weekly_data", "settings"}

func schemaQueries() []string {
	return []string{
		dailyTableDDL(),

		`CREATE TABLE IF NOT EXISTS weekly_data (
			year INTEGER NOT NULL,
			week_number INTEGER NOT NULL,
			date_range TEXT NOT NULL,
			total_minutes INTEGER NOT NULL DEFAULT 0,
			total_hours TEXT NOT NULL DEFAULT '0H 0M',
			days_with_data INTEGER NOT NULL DEFAULT 0,
			rank INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (year, week_number)
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			setting_name TEXT PRIMARY KEY,
			setting_value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_weekly_rank ON weekly_data(rank)`,
	}
}

func dailyTableDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS daily_data (\n")
	b.WriteString("\t\t\tdate TEXT PRIMARY KEY,\n")
	b.WriteString("\t\t\tday_name TEXT NOT NULL,\n")
	for _, id := range Buckets {
		fmt.Fprintf(&b, "\t\t\t%s INTEGER NOT NULL DEFAULT 0 CHECK(%s >= 0),\n", BucketColumns[id], BucketColumns[id])
	}
	b.WriteString("\t\t\ttotal_minutes INTEGER NOT NULL DEFAULT 0,\n")
	b.WriteString("\t\t\tnotes TEXT NOT NULL DEFAULT ''\n\t\t)")
	return b.String()
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Path() string {
	return d.path
}
