package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/vault"
)

const (
	plainExt  = ".json"
	sealedExt = ".json.enc"
)

// Persistence handles the disk I/O for the MemStore. Each bucket is one file.
// When a key is set the files are AES-GCM sealed with the vault.
type Persistence struct {
	DataDir string
	key     []byte
	logger  *zap.Logger

	mu      sync.Mutex // Protects concurrent writes to the filesystem
	lastSeq map[string]uint64
}

// NewPersistence initializes a persistence handler. A nil key stores plain JSON.
func NewPersistence(dir string, key []byte, logger *zap.Logger) (*Persistence, error) {
	if key != nil && len(key) != vault.KeySize {
		return nil, vault.ErrInvalidKey
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{
		DataDir: dir,
		key:     key,
		logger:  logger,
		lastSeq: make(map[string]uint64),
	}, nil
}

func (p *Persistence) path(bucket string) string {
	if p.key != nil {
		return filepath.Join(p.DataDir, bucket+sealedExt)
	}
	return filepath.Join(p.DataDir, bucket+plainExt)
}

// SaveBucket writes a bucket snapshot atomically. Snapshots with a sequence
// older than the last one written are dropped, so a slow goroutine can never
// overwrite newer data.
func (p *Persistence) SaveBucket(bucket string, data map[string]json.RawMessage, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != 0 && seq <= p.lastSeq[bucket] {
		return nil
	}

	filePath := p.path(bucket)

	// 1. Empty buckets are removed from disk
	if len(data) == 0 {
		p.lastSeq[bucket] = seq
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	// 2. Convert map to JSON bytes
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// 3. Seal if a key is configured
	if p.key != nil {
		if bytes, err = vault.Seal(bytes, p.key); err != nil {
			return fmt.Errorf("seal bucket %s: %w", bucket, err)
		}
	}

	// 4. Write to a temporary file, then rename over the old one.
	// A crash leaves either the old file or the new one, never a torn write.
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		return err
	}
	p.lastSeq[bucket] = seq
	return nil
}

// LastSeq returns the highest snapshot sequence written so far. A MemStore
// attached to this Persistence continues from it.
func (p *Persistence) LastSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var last uint64
	for _, s := range p.lastSeq {
		if s > last {
			last = s
		}
	}
	return last
}

// LoadAll returns every bucket found in the data directory.
// Unreadable files are logged and skipped.
func (p *Persistence) LoadAll() (map[string]map[string]json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]map[string]json.RawMessage)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	ext := plainExt
	if p.key != nil {
		ext = sealedExt
	}

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		// A plain loader must not pick up "x.json.enc" as bucket "x.json".
		if p.key == nil && strings.HasSuffix(name, sealedExt) {
			continue
		}
		bucket := strings.TrimSuffix(name, ext)

		content, err := os.ReadFile(filepath.Join(p.DataDir, name))
		if err != nil {
			p.logger.Warn("could not read bucket file", zap.String("file", name), zap.Error(err))
			continue
		}

		if p.key != nil {
			if content, err = vault.Open(content, p.key); err != nil {
				p.logger.Warn("could not open sealed bucket", zap.String("file", name), zap.Error(err))
				continue
			}
		}

		var bucketData map[string]json.RawMessage
		if err := json.Unmarshal(content, &bucketData); err != nil {
			p.logger.Warn("could not unmarshal bucket", zap.String("file", name), zap.Error(err))
			continue
		}
		allData[bucket] = bucketData
	}
	return allData, nil
}
