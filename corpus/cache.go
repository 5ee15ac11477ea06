package corpus

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/binast/dict"
)

var log = commonlog.GetLogger("binast.corpus")

// ScanCache is a sqlite-backed dict.Cache. Entries are keyed by file
// content hash and scan-config fingerprint, so the database never goes
// stale: an edited file or changed config simply misses. Deleting the
// file costs nothing but a rescan.
type ScanCache struct {
	db *sql.DB
	mu sync.Mutex
}

var _ dict.Cache = (*ScanCache)(nil)

// OpenScanCache opens or creates the cache database at path.
func OpenScanCache(path string) (*ScanCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("corpus: creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("corpus: opening scan cache: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS scans (
		file_hash  BLOB NOT NULL,
		config_fp  BLOB NOT NULL,
		candidates BLOB NOT NULL,
		PRIMARY KEY (file_hash, config_fp)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: creating scans table: %w", err)
	}

	return &ScanCache{db: db}, nil
}

// Get returns the stored candidate blob for the key. Database failures
// count as misses; a rescan is always a valid fallback.
func (c *ScanCache) Get(fileHash, cfgFingerprint [32]byte) ([]byte, bool) {
	var blob []byte
	err := c.db.QueryRow(
		"SELECT candidates FROM scans WHERE file_hash = ? AND config_fp = ?",
		fileHash[:], cfgFingerprint[:],
	).Scan(&blob)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warningf("scan cache read failed: %v", err)
		}
		return nil, false
	}
	return blob, true
}

// Put stores the candidate blob for the key, replacing any previous row.
func (c *ScanCache) Put(fileHash, cfgFingerprint [32]byte, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO scans (file_hash, config_fp, candidates) VALUES (?, ?, ?)",
		fileHash[:], cfgFingerprint[:], blob,
	)
	if err != nil {
		return fmt.Errorf("corpus: writing scan cache: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *ScanCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
