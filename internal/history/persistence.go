package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// SchemaVersion is the current log schema version.
const SchemaVersion = 1

// ErrLogClosed is returned when operations are attempted on a closed log.
var ErrLogClosed = errors.New("event log is closed")

// Log is append-only storage for records.
type Log interface {
	// Load reads every record in storage order.
	Load() ([]Record, error)

	// Append adds one record.
	Append(r Record) error

	// AppendBatch adds several records with a single sync.
	AppendBatch(rs []Record) error

	// Rewrite atomically replaces the stored records (used by prune).
	Rewrite(rs []Record) error

	// Close releases file handles.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	SchemaVersion int   `json:"jacknotify_schema_version"`
	CreatedAt     int64 `json:"created_at"`
}

// JSONLLog implements Log on a JSON-lines file.
type JSONLLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// OpenJSONL opens the log at path, creating it and its directory if needed.
func OpenJSONL(path string) (*JSONLLog, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	return &JSONLLog{path: path, file: file}, nil
}

// openLogFile opens path for appending and writes the header into an empty file.
func openLogFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if _, err := file.Write(header()); err != nil {
			file.Close()
			return nil, err
		}
	}
	return file, nil
}

// syncPathLocked reopens the log when the file at path is no longer the one
// held open, as happens when another process prunes or removes it.
func (l *JSONLLog) syncPathLocked() error {
	held, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", l.path, err)
	}
	onDisk, err := os.Stat(l.path)
	switch {
	case err == nil && os.SameFile(held, onDisk):
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", l.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	file, err := openLogFile(l.path)
	if err != nil {
		return err
	}
	old := l.file
	l.file = file
	return old.Close()
}

// Path returns the file path of the log.
func (l *JSONLLog) Path() string {
	return l.path
}

func header() []byte {
	data, _ := json.Marshal(schemaHeader{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().Unix(),
	})
	return append(data, '\n')
}

// Load reads all records. Malformed lines are skipped.
func (l *JSONLLog) Load() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLogClosed
	}
	if err := l.syncPathLocked(); err != nil {
		return nil, err
	}

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", l.path, err)
	}
	defer l.file.Seek(0, io.SeekEnd)

	return decode(l.file)
}

func decode(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)

	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err == nil && h.SchemaVersion > 0 {
				if h.SchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)", h.SchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.ID != "" {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading file: %w", err)
	}
	return records, nil
}

// Append adds a record to storage.
func (l *JSONLLog) Append(r Record) error {
	return l.AppendBatch([]Record{r})
}

// AppendBatch adds multiple records with one sync.
func (l *JSONLLog) AppendBatch(rs []Record) error {
	if len(rs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	if err := l.syncPathLocked(); err != nil {
		return err
	}
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return err
	}
	return l.file.Sync()
}

// Rewrite replaces the file contents atomically and reopens it for appending.
func (l *JSONLLog) Rewrite(rs []Record) error {
	var buf bytes.Buffer
	buf.Write(header())
	enc := json.NewEncoder(&buf)
	for _, r := range rs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	if err := renameio.WriteFile(l.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", l.path, err)
	}

	file, err := openLogFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", l.path, err)
	}
	old := l.file
	l.file = file
	return old.Close()
}

// Close releases the file handle.
func (l *JSONLLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Log = (*JSONLLog)(nil)
