package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/repository"
)

// AuditLogService appends audit trail entries. Writes are best-effort:
// the mutation that triggered the entry has already committed, and a
// failed audit write is logged and swallowed rather than rolling the
// mutation back.
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	// UserID is the acting user; nil means the system acted
	UserID    *int
	Action    domain.AuditAction
	TableName string
	RecordID  string
	OldValue  interface{}
	NewValue  interface{}
}

// Log appends one audit entry. The client IP is taken from the request
// metadata stored in ctx, falling back to "Unknown" for non-HTTP
// callers. Never returns an error: failures are logged and swallowed.
func (s *AuditLogService) Log(ctx context.Context, entry LogEntry) {
	auditLog := &domain.AuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		TableName: entry.TableName,
		RecordID:  entry.RecordID,
		OldValue:  s.marshalSnapshot(entry.OldValue),
		NewValue:  s.marshalSnapshot(entry.NewValue),
		IPAddress: auth.ClientIPFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to write audit log",
			zap.String("action", string(entry.Action)),
			zap.String("table", entry.TableName),
			zap.String("record_id", entry.RecordID),
			zap.Error(err))
	}
}

// List retrieves audit logs with filters
func (s *AuditLogService) List(ctx context.Context, filter *domain.AuditLogFilter) ([]domain.AuditLog, int64, error) {
	return s.auditRepo.List(ctx, filter)
}

// GetByRecord retrieves the audit trail of a single record
func (s *AuditLogService) GetByRecord(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.auditRepo.ListByRecord(ctx, tableName, recordID, limit)
}

// GetByUser retrieves audit logs for a specific user's actions
func (s *AuditLogService) GetByUser(ctx context.Context, userID int, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.auditRepo.ListByUser(ctx, userID, limit)
}

// marshalSnapshot serializes a snapshot value, dropping null fields.
// Callers pass association-stripped copies, which keeps the entity
// graphs acyclic before marshaling. A failed marshal degrades to a nil
// snapshot instead of failing the audit write.
func (s *AuditLogService) marshalSnapshot(v interface{}) *string {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to serialize audit snapshot", zap.Error(err))
		return nil
	}

	// Omit null fields from object snapshots
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err == nil {
		for k, val := range m {
			if val == nil {
				delete(m, k)
			}
		}
		if clean, err := json.Marshal(m); err == nil {
			data = clean
		}
	}

	str := string(data)
	return &str
}
