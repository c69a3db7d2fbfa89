package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

// AuditContext identifies the caller of a mutating operation.
// The request layer is trusted to fill it in; nothing here authorizes.
type AuditContext struct {
	TenantID  string
	ActorID   string
	ActorName string
	ActorRole string
	IPAddress string
	UserAgent string
}

// SystemAuditContext is used by background jobs and the admin CLI
func SystemAuditContext(tenantID, actor string) AuditContext {
	if actor == "" {
		actor = "system"
	}
	return AuditContext{TenantID: tenantID, ActorID: actor, ActorName: actor, ActorRole: "system"}
}

// LogAuditEvent appends an audit entry to snap. It must be called inside
// RecordStore.Update so the entry is persisted together with the change it describes;
// an error here aborts the whole operation.
func (s *RecordStore) LogAuditEvent(
	snap *Snapshot,
	ctx AuditContext,
	action models.AuditAction,
	entityKind string,
	entityID string,
	entityName string,
	description string,
	oldValues interface{},
	newValues interface{},
) error {
	var oldJSON, newJSON string

	if oldValues != nil {
		bytes, err := json.Marshal(oldValues)
		if err != nil {
			return fmt.Errorf("failed to encode audit old values: %w", err)
		}
		oldJSON = string(bytes)
	}

	if newValues != nil {
		bytes, err := json.Marshal(newValues)
		if err != nil {
			return fmt.Errorf("failed to encode audit new values: %w", err)
		}
		newJSON = string(bytes)
	}

	entry := models.AuditLog{
		ID:          uuid.New().String(),
		CreatedAt:   s.Now(),
		TenantID:    snap.TenantID,
		ActorID:     ctx.ActorID,
		ActorName:   ctx.ActorName,
		EntityKind:  entityKind,
		EntityID:    entityID,
		EntityName:  entityName,
		Action:      action,
		Description: description,
		OldValues:   oldJSON,
		NewValues:   newJSON,
		Metadata:    auditMetadata(ctx),
	}

	snap.AppendAudit(entry)
	s.metrics.audited(string(action))
	return nil
}

func auditMetadata(ctx AuditContext) map[string]string {
	meta := make(map[string]string)
	if ctx.ActorRole != "" {
		meta["actor_role"] = ctx.ActorRole
	}
	if ctx.IPAddress != "" {
		meta["ip_address"] = ctx.IPAddress
	}
	if ctx.UserAgent != "" {
		meta["user_agent"] = ctx.UserAgent
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	ActorID     string
	EntityKind  string
	EntityID    string
	Action      string
	DateFrom    time.Time
	DateTo      time.Time
	SearchQuery string
}

func (f AuditLogFilters) matches(entry *models.AuditLog) bool {
	if f.ActorID != "" && entry.ActorID != f.ActorID {
		return false
	}
	if f.EntityKind != "" && entry.EntityKind != f.EntityKind {
		return false
	}
	if f.EntityID != "" && entry.EntityID != f.EntityID {
		return false
	}
	if f.Action != "" && string(entry.Action) != f.Action {
		return false
	}
	if !f.DateFrom.IsZero() && entry.CreatedAt.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && entry.CreatedAt.After(f.DateTo) {
		return false
	}
	if f.SearchQuery != "" {
		q := strings.ToLower(f.SearchQuery)
		if !strings.Contains(strings.ToLower(entry.EntityName), q) &&
			!strings.Contains(strings.ToLower(entry.Description), q) &&
			!strings.Contains(strings.ToLower(entry.ActorName), q) {
			return false
		}
	}
	return true
}

// AuditService is the read side of the audit trail. There is no update or delete.
type AuditService struct {
	store *RecordStore
}

func NewAuditService(store *RecordStore) *AuditService {
	return &AuditService{store: store}
}

// GetTenantAuditLogs retrieves paginated audit logs for a tenant, newest first
func (a *AuditService) GetTenantAuditLogs(
	ctx context.Context,
	tenantID string,
	filters AuditLogFilters,
	page, pageSize int,
) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var logs []models.AuditLog
	var total int64
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		matched := newestFirst(selectWhere(snap.AuditLogs, filters.matches))
		total = int64(len(matched))

		offset := (page - 1) * pageSize
		if offset >= len(matched) {
			logs = []models.AuditLog{}
			return nil
		}
		end := offset + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		logs = matched[offset:end]
		return nil
	})
	return logs, total, err
}

// GetResourceAuditHistory retrieves the audit history for one entity, newest first
func (a *AuditService) GetResourceAuditHistory(ctx context.Context, tenantID, entityKind, entityID string) ([]models.AuditLog, error) {
	filters := AuditLogFilters{EntityKind: entityKind, EntityID: entityID}
	var logs []models.AuditLog
	err := a.store.View(ctx, tenantID, func(snap *Snapshot) error {
		logs = newestFirst(selectWhere(snap.AuditLogs, filters.matches))
		return nil
	})
	return logs, err
}

// newestFirst orders entries by creation time descending; entries with equal
// timestamps keep reverse append order.
func newestFirst(entries []models.AuditLog) []models.AuditLog {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}
