package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// dbFileName is the SQLite file created in DataDir. It is rebuilt from the
// JSONL files on every Attach.
const dbFileName = "archive.db"

var _ types.Archive = (*Backend)(nil)

// Backend implements the Archive interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB
	logger   *slog.Logger

	syncStrategy  string
	pendingWrites []pendingWrite
	batchMu       sync.Mutex // protects pendingWrites
}

// pendingWrite represents a deferred JSONL write operation.
type pendingWrite struct {
	file    string       // JSONL file name
	persist func() error // rewrites the file from SQLite
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{logger: slog.Default()}
}

// WithLogger sets the logger used for attach, load and flush messages.
func (b *Backend) WithLogger(logger *slog.Logger) *Backend {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, creates a fresh SQLite schema and
// loads the JSONL files into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return err
	}

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}

	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.syncStrategy = config.GetSyncStrategy()
	b.pendingWrites = nil
	b.attached = true

	b.logger.Debug("archive attached", "data_dir", dataDir, "sync", b.syncStrategy)
	return nil
}

// Detach releases all resources held by the backend.
// Flushes queued JSONL writes, then closes the SQLite connection. After
// Detach, all operations return ErrArchiveDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.logger.Debug("archive detached", "data_dir", b.dataDir)
	return nil
}

// generateUUID generates a new UUID v7 for pack IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// persist rewrites the given JSONL files now or queues the rewrite until
// Detach, depending on the sync strategy. The caller must hold b.mu.
func (b *Backend) persist(files ...string) error {
	for _, file := range files {
		write := b.persistFunc(file)
		if b.syncStrategy == types.SyncImmediate {
			if err := write(); err != nil {
				return fmt.Errorf("persisting %s: %w", file, err)
			}
			continue
		}
		b.queueWrite(file, write)
	}
	return nil
}

func (b *Backend) persistFunc(file string) func() error {
	switch file {
	case packsFile:
		return b.persistPacksJSONL
	default:
		return b.persistPackEntriesJSONL
	}
}

// queueWrite adds a write operation to the pending queue. A file already
// queued is not queued again since each write rewrites the whole file.
func (b *Backend) queueWrite(file string, persist func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	for _, pw := range b.pendingWrites {
		if pw.file == file {
			return
		}
	}
	b.pendingWrites = append(b.pendingWrites, pendingWrite{file: file, persist: persist})
}

// flushPendingWritesLocked executes all pending writes.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if len(b.pendingWrites) == 0 {
		return nil
	}
	b.logger.Debug("flushing pending writes", "count", len(b.pendingWrites))
	for _, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			return fmt.Errorf("flush %s: %w", pw.file, err)
		}
	}
	b.pendingWrites = nil
	return nil
}
