package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/model"
	"github.com/devrev/promptledger/internal/util"
)

const journalFileName = "ledger.journal"

// JournalService provides write-behind durability for the ledger: every
// accepted mutating call is appended as a framed, checksummed command record.
// Replaying the journal in order through the deterministic core reproduces
// the exact pre-crash state.
type JournalService struct {
	config *JournalConfig
	file   *os.File
	logger *zap.Logger
	mu     sync.Mutex
	path   string
	size   int64
}

// JournalConfig holds journal configuration
type JournalConfig struct {
	Dir        string
	SyncWrites bool
}

// NewJournalService opens (or creates) the journal file for appending
func NewJournalService(cfg *JournalConfig, logger *zap.Logger) (*JournalService, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	path := filepath.Join(cfg.Dir, journalFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal file: %w", err)
	}

	logger.Info("Journal opened",
		zap.String("path", path),
		zap.Int64("size", info.Size()))

	return &JournalService{
		config: cfg,
		file:   file,
		logger: logger,
		path:   path,
		size:   info.Size(),
	}, nil
}

// Append writes one command record to the journal
func (s *JournalService) Append(ctx context.Context, cmd *model.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	frame := util.EncodeFrame(payload)
	if _, err := s.file.Write(frame); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	s.size += int64(len(frame))

	if s.config.SyncWrites {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync journal: %w", err)
		}
	}

	return nil
}

// Replay reads the journal from the beginning and invokes fn for each
// command in order. A corrupt or truncated trailing record ends the replay
// with a warning; everything before it is preserved.
func (s *JournalService) Replay(ctx context.Context, fn func(*model.Command) error) (int, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open journal for replay: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	replayed := 0

	for {
		payload, err := util.ReadFrame(reader)
		if err != nil {
			if err == util.ErrCorruptFrame {
				s.logger.Warn("Corrupt journal record, stopping replay",
					zap.Int("replayed", replayed))
			}
			break
		}

		var cmd model.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			s.logger.Warn("Failed to unmarshal journal record, skipping",
				zap.Error(err))
			continue
		}

		if err := fn(&cmd); err != nil {
			s.logger.Warn("Failed to replay journal record, skipping",
				zap.Uint64("seq", cmd.Seq),
				zap.String("op", string(cmd.Op)),
				zap.Error(err))
			continue
		}
		replayed++
	}

	s.logger.Info("Journal replay completed", zap.Int("commands", replayed))
	return replayed, nil
}

// Size returns the current journal size in bytes
func (s *JournalService) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Close closes the journal file
func (s *JournalService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
