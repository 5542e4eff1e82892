package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"productivity-timer/internal/database"
)

// Backend stores a whole document. Load returns database.ErrNotFound when
// nothing was saved yet.
type Backend interface {
	Path() string
	Load() (*database.Document, error)
	Save(doc *database.Document) error
	Backup(dir string, at time.Time) (string, error)
	Reset() error
	Close() error
}

// LoadResult tells the caller how the store came up.
type LoadResult struct {
	Fresh      bool
	BackupPath string
	// LoadErr is the failure that forced a fresh store, if any.
	LoadErr error
	// Degraded is set when the unreadable store could not be backed up
	// either; the gateway then keeps data in memory only.
	Degraded bool
	// Upgraded is set when the store had an older layout that the next
	// save rewrites. BackupPath then holds the copy of the old file.
	Upgraded bool
}

// upgrader is implemented by backends that can load an older layout and
// rewrite it on save.
type upgrader interface {
	Legacy() bool
}

// Gateway loads and saves the document through a backend, backing up
// unreadable stores before they are replaced.
type Gateway struct {
	backend   Backend
	backupDir string
	now       func() time.Time

	degraded   bool
	warnedOnce sync.Once
}

func NewGateway(backend Backend, backupDir string, now func() time.Time) *Gateway {
	if now == nil {
		now = time.Now
	}
	return &Gateway{backend: backend, backupDir: backupDir, now: now}
}

// Degraded reports whether saves are being skipped.
func (g *Gateway) Degraded() bool {
	return g.degraded
}

// Load never fails: a missing store starts fresh, an unreadable one is
// backed up and replaced by a fresh one, and when even the backup fails the
// gateway switches to memory-only mode.
func (g *Gateway) Load() (*database.Document, LoadResult) {
	doc, err := g.backend.Load()
	if err == nil {
		doc.FillKeys()
		log.Printf("✅ Store loaded: %s (%d days, %d weeks)", g.backend.Path(), len(doc.DailyData), len(doc.WeeklyData))
		if u, ok := g.backend.(upgrader); ok && u.Legacy() {
			return doc, g.backupBeforeUpgrade()
		}
		return doc, LoadResult{}
	}

	fresh := database.NewDocument(g.now())
	if errors.Is(err, database.ErrNotFound) {
		log.Printf("📝 No existing store at %s, starting fresh", g.backend.Path())
		if saveErr := g.backend.Save(fresh); saveErr != nil {
			log.Printf("⚠️ Could not create initial store: %v", saveErr)
		}
		return fresh, LoadResult{Fresh: true}
	}

	log.Printf("❌ Failed to load store: %v", err)
	result := LoadResult{Fresh: true, LoadErr: err}

	path, backupErr := g.backend.Backup(g.backupDir, g.now())
	if backupErr != nil {
		log.Printf("❌ Backup of unreadable store failed, keeping data in memory only: %v", backupErr)
		g.degraded = true
		result.Degraded = true
		return fresh, result
	}
	result.BackupPath = path
	log.Printf("📋 Unreadable store copied to %s", path)

	if resetErr := g.backend.Reset(); resetErr != nil {
		log.Printf("⚠️ Could not reset store: %v", resetErr)
	}
	if saveErr := g.backend.Save(fresh); saveErr != nil {
		log.Printf("⚠️ Could not write fresh store: %v", saveErr)
	}
	return fresh, result
}

// backupBeforeUpgrade copies an old-layout store aside before the first
// save rewrites it. Without a copy nothing is written over it.
func (g *Gateway) backupBeforeUpgrade() LoadResult {
	result := LoadResult{Upgraded: true}
	path, err := g.backend.Backup(g.backupDir, g.now())
	if err != nil {
		log.Printf("❌ Backup of old-layout store failed, keeping data in memory only: %v", err)
		g.degraded = true
		result.Degraded = true
		return result
	}
	result.BackupPath = path
	log.Printf("📋 Old-layout store copied to %s", path)
	return result
}

// Hold switches to memory-only mode so the store on disk is left untouched.
func (g *Gateway) Hold(reason string) {
	log.Printf("❌ Keeping data in memory only: %s", reason)
	g.degraded = true
}

// Save stamps lastModified and swaps the whole document in.
func (g *Gateway) Save(doc *database.Document) error {
	if g.degraded {
		g.warnedOnce.Do(func() {
			log.Printf("⚠️ Store is in memory-only mode, changes are not persisted")
		})
		return nil
	}
	doc.Metadata.Version = database.DocumentVersion
	doc.Metadata.LastModified = g.now().UTC()
	if doc.Metadata.Created.IsZero() {
		doc.Metadata.Created = doc.Metadata.LastModified
	}
	return g.backend.Save(doc)
}

// Backup copies the current store into the backup directory.
func (g *Gateway) Backup() (string, error) {
	if g.degraded {
		return "", &database.PersistenceError{Op: "backup", Path: g.backend.Path(), Err: errors.New("store is in memory-only mode")}
	}
	path, err := g.backend.Backup(g.backupDir, g.now())
	if err != nil {
		return "", err
	}
	log.Printf("📋 Backup created: %s", path)
	return path, nil
}

func (g *Gateway) Close() error {
	return g.backend.Close()
}
