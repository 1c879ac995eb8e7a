// Package ledger provides an append-only, date-partitioned JSONL audit
// trail: one complete decision snapshot per tick, one line per record.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kledx/toxictide/pkg/types"
	"go.uber.org/zap"
)

// Ledger owns a single exclusive file handle for the journal of the
// calendar date passed to New. It does not switch files when the date
// changes: every record goes to that date's journal until Close. append is
// not reentrant — callers serialize through the pipeline thread.
type Ledger struct {
	mu      sync.Mutex
	logger  *zap.Logger
	dir     string
	file    *os.File
	writer  *bufio.Writer
	logPath string
}

// New opens (creating if needed) logDir/<YYYYMMDD>/records.jsonl in append
// mode, using now to determine the calendar-date subdirectory.
func New(logger *zap.Logger, logDir string, now time.Time) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	datePartition := filepath.Join(logDir, now.UTC().Format("20060102"))
	if err := os.MkdirAll(datePartition, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create log dir: %w", err)
	}

	logPath := filepath.Join(datePartition, "records.jsonl")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open log file: %w", err)
	}

	logger.Info("ledger_initialized", zap.String("log_path", logPath))
	return &Ledger{
		logger:  logger,
		dir:     logDir,
		file:    f,
		writer:  bufio.NewWriter(f),
		logPath: logPath,
	}, nil
}

// Append serializes record as one JSON line and flushes immediately.
// Write failures are logged but never propagate to the decision path.
func (l *Ledger) Append(record types.LedgerRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(record)
	if err != nil {
		l.logger.Error("ledger_append_failed", zap.Error(err), zap.Time("ts", record.Ts))
		return
	}

	if _, err := l.writer.Write(b); err != nil {
		l.logger.Error("ledger_append_failed", zap.Error(err), zap.Time("ts", record.Ts))
		return
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		l.logger.Error("ledger_append_failed", zap.Error(err), zap.Time("ts", record.Ts))
		return
	}
	if err := l.writer.Flush(); err != nil {
		l.logger.Error("ledger_append_failed", zap.Error(err), zap.Time("ts", record.Ts))
		return
	}

	l.logger.Debug("ledger_record_appended", zap.Time("ts", record.Ts))
}

// Close releases the file handle.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	err := l.file.Close()
	l.logger.Info("ledger_closed", zap.String("log_path", l.logPath))
	return err
}

// LogPath returns the path of the currently open journal file.
func (l *Ledger) LogPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logPath
}

// Read re-materializes all records from a journal file in order. Lines
// that fail to parse are logged and skipped, not fatal.
func Read(logger *zap.Logger, logPath string) ([]types.LedgerRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: open for read: %w", err)
	}
	defer f.Close()

	var records []types.LedgerRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var rec types.LedgerRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logger.Warn("ledger_read_line_failed", zap.Int("line_num", lineNum), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("ledger: scan: %w", err)
	}

	logger.Info("ledger_read_completed", zap.Int("records_count", len(records)))
	return records, nil
}
