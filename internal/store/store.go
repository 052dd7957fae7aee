package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists the state document as a single JSON file next to a
// backup copy of the previous successful write.
type Store struct {
	path   string
	logger *slog.Logger
}

// Open returns a Store for the document at path, creating its directory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("state path is empty")
	}
	if err := EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger.With("component", "store")}, nil
}

// Path returns the primary document path.
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns the path of the backup copy.
func (s *Store) BackupPath() string {
	return s.path + ".backup"
}

// Load reads the document. A missing file yields an empty document. An
// unreadable or corrupt file is replaced by the backup when one parses;
// otherwise an empty document is returned. Load never fails.
func (s *Store) Load() *Document {
	doc, err := readDocument(s.path)
	switch {
	case err == nil:
		return doc
	case errors.Is(err, fs.ErrNotExist):
		return NewDocument()
	}

	var verr *VersionError
	if errors.As(err, &verr) {
		s.logger.Error("state document is from a newer release, saves are refused",
			"path", s.path, "version", verr.Found, "supported", verr.Supported)
		if doc, berr := readDocument(s.BackupPath()); berr == nil {
			return doc
		}
		return NewDocument()
	}

	s.logger.Warn("state document unreadable, trying backup", "path", s.path, "error", err)

	doc, berr := readDocument(s.BackupPath())
	if berr != nil {
		s.logger.Error("backup unusable, starting with empty state",
			"backup", s.BackupPath(), "error", berr)
		return NewDocument()
	}
	if cerr := copyFile(s.BackupPath(), s.path); cerr != nil {
		s.logger.Error("restore backup over primary failed", "error", cerr)
	} else {
		s.logger.Info("state restored from backup", "backup", s.BackupPath())
	}
	return doc
}

// Save writes doc atomically: the current file is copied to the backup
// path (best effort), the new content goes to a temporary file in the same
// directory, and the temporary file is renamed over the primary path.
// On failure the backup is restored and the error is returned. A primary
// written by a newer release is never overwritten.
func (s *Store) Save(doc *Document) error {
	if v, ok := fileVersion(s.path); ok && v > DocumentVersion {
		return fmt.Errorf("save state: %w", &VersionError{Found: v, Supported: DocumentVersion})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.BackupPath()); err != nil {
			s.logger.Warn("state backup failed", "error", err)
		}
	}

	if err := writeAtomic(s.path, data); err != nil {
		s.restoreBackup()
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Store) restoreBackup() {
	if _, err := os.Stat(s.BackupPath()); err != nil {
		return
	}
	if err := copyFile(s.BackupPath(), s.path); err != nil {
		s.logger.Error("restore backup failed", "error", err)
		return
	}
	s.logger.Info("state restored from backup after failed save")
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// writeAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DefaultStatePath resolves the state file path in priority order:
// 1. STUDYCOACH_STATE environment variable
// 2. $XDG_DATA_HOME/studycoach/state.json
// 3. ~/.local/share/studycoach/state.json
func DefaultStatePath() (string, error) {
	if p := os.Getenv("STUDYCOACH_STATE"); p != "" {
		return p, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// DefaultEventsPath resolves the LLM event log path: STUDYCOACH_EVENTS_DB,
// else events.db next to the default state file.
func DefaultEventsPath() (string, error) {
	if p := os.Getenv("STUDYCOACH_EVENTS_DB"); p != "" {
		return p, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.db"), nil
}

func dataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "studycoach"), nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
