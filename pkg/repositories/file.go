package repositories

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/repositories/models"
	"github.com/klauspost/compress/zstd"
)

// FileRepository appends records as JSON lines. Paths ending in .zst store
// each line as its own zstd frame, so the file stays one valid stream.
type FileRepository struct {
	path    string
	file    *os.File
	encoder *zstd.Encoder
	lock    sync.Mutex
}

func NewFileRepository(path string) (Repository, error) {
	if path == "" {
		return nil, errors.New("play log path is empty")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open play log: %w", err)
	}

	r := &FileRepository{
		path: path,
		file: f,
	}
	if r.compressed() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		r.encoder = enc
	}
	log.Debug("Opened play log %s", path)
	return r, nil
}

func (r *FileRepository) compressed() bool {
	return strings.HasSuffix(r.path, ".zst")
}

func (r *FileRepository) Close(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.encoder != nil {
		r.encoder.Close()
	}
	return r.file.Close()
}

func (r *FileRepository) AppendTurn(ctx context.Context, record *models.TurnRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal turn record: %w", err)
	}
	b = append(b, '\n')

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.encoder != nil {
		b = r.encoder.EncodeAll(b, nil)
	}
	if _, err := r.file.Write(b); err != nil {
		return fmt.Errorf("failed to write turn record: %w", err)
	}
	return nil
}

func (r *FileRepository) ListTurns(ctx context.Context, limit int) ([]*models.TurnRecord, error) {
	limit = clampLimit(limit)
	var records []*models.TurnRecord
	err := r.scan(func(record *models.TurnRecord) {
		records = append(records, record)
		if len(records) > limit {
			records = records[1:]
		}
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.TurnRecord{}
	}
	return records, nil
}

func (r *FileRepository) ListMatchTurns(ctx context.Context, matchID string) ([]*models.TurnRecord, error) {
	var records []*models.TurnRecord
	err := r.scan(func(record *models.TurnRecord) {
		if record.MatchID == matchID {
			records = append(records, record)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ErrNotFound{}
	}
	return records, nil
}

// scan reads the whole log. Lines that do not decode are skipped.
func (r *FileRepository) scan(fn func(*models.TurnRecord)) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open play log for reading: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat play log: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	var src io.Reader = f
	if r.encoder != nil {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, messages.MaxLineLength), 4*messages.MaxLineLength)
	for sc.Scan() {
		record := &models.TurnRecord{}
		if err := json.Unmarshal(sc.Bytes(), record); err != nil {
			log.Warn("Skipping unreadable play log line in %s: %v", r.path, err)
			continue
		}
		fn(record)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read play log: %w", err)
	}
	return nil
}
