package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/pkg/logger"
)

type AuditService struct {
	logChan chan *model.AuditLog
	logFile *os.File
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
}

// AuditFilter narrows List. Zero values match everything.
type AuditFilter struct {
	PrimaryType string
	User        string
	From        *time.Time
	To          *time.Time
	Limit       int
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*model.AuditLog, error)
}

// NewAuditService starts the background writer. logDir may be empty to skip
// the daily jsonl file; repo may be nil to keep records in memory only.
func NewAuditService(logDir string, repo AuditRepo) (*AuditService, error) {
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, 1000),
		buffer:  newAuditBuffer(1000),
		repo:    repo,
		done:    make(chan struct{}),
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		filename := filepath.Join(logDir, "audit-"+time.Now().Format("2006-01-02")+".jsonl")
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		svc.logFile = f
	}

	go svc.processLogs()

	return svc, nil
}

func (s *AuditService) Log(entry *model.AuditLog) {
	if entry == nil {
		return
	}
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		// Never block the request path on audit persistence.
		logger.Warn("audit log queue full, dropping entry", "id", entry.ID)
	}
}

// List prefers the repository and falls back to the in-memory ring when it is
// missing or failing.
func (s *AuditService) List(ctx context.Context, filter AuditFilter) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, filter)
		if err == nil {
			return records, nil
		}
		logger.Warn("audit repository list failed, using memory buffer", "error", err)
	}
	return s.buffer.List(filter), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	var encoder *json.Encoder
	if s.logFile != nil {
		encoder = json.NewEncoder(s.logFile)
	}
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("failed to persist audit log", "id", entry.ID, "error", err)
			}
		}
		if encoder != nil {
			if err := encoder.Encode(entry); err != nil {
				logger.Error("failed to write audit log", "error", err)
			}
		}
	}
}

// Close drains queued entries and closes the log file.
func (s *AuditService) Close() {
	close(s.logChan)
	<-s.done
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// Matches reports whether entry passes filter, ignoring Limit.
func (f AuditFilter) Matches(entry *model.AuditLog) bool {
	if f.PrimaryType != "" && contextString(entry, "primary_type") != f.PrimaryType {
		return false
	}
	if f.User != "" && contextString(entry, "user") != f.User {
		return false
	}
	if f.From != nil && entry.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && entry.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func contextString(entry *model.AuditLog, key string) string {
	if entry.Context == nil {
		return ""
	}
	v, _ := entry.Context[key].(string)
	return v
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns matching records, newest first.
func (b *auditBuffer) List(filter AuditFilter) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := filter.Limit
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil || !filter.Matches(entry) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
