package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"evidence-explorer/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditRepository stores the chain-of-custody trail of uploads, overwrites,
// deletes and metadata edits.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	var detailJSON []byte
	if entry.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	occurredAt, err := time.Parse(time.RFC3339, entry.OccurredAt)
	if err != nil {
		occurredAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_entries
		 (action, occurred_at, actor_user_id, actor_username, actor_ip,
		  status, container, resource, detail, error_text, session_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Action, occurredAt,
		entry.Actor.UserID, entry.Actor.Username, entry.Actor.IP,
		entry.Status, entry.Container, entry.Resource, detailJSON, entry.Error, entry.SessionID)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// Record logs entry and only reports failures to the log; an audit outage
// must not fail the user's upload or delete.
func (r *AuditRepository) Record(ctx context.Context, entry model.AuditEntry) {
	if err := r.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("audit write failed", "action", entry.Action, "resource", entry.Resource, "error", err)
	}
}

// Query returns one page of entries, newest first.
func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditLimit
	}
	if query.Limit > maxAuditLimit {
		query.Limit = maxAuditLimit
	}

	whereClause, args := auditFilter(query)
	argIdx := len(args) + 1

	// One extra row tells whether a next page exists.
	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT action, occurred_at, actor_user_id, actor_username, actor_ip,
		        status, container, resource, detail, error_text, session_id
		 FROM audit_entries %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit+1, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("scan audit entries: %w", err)
	}

	meta := model.Meta{Page: query.Page, HasPrevious: query.Page > 1}
	if len(entries) > query.Limit {
		meta.HasNext = true
		entries = entries[:query.Limit]
	}

	return entries, meta, nil
}

func auditFilter(query model.AuditQuery) (string, []any) {
	where := make([]string, 0)
	args := make([]any, 0)

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if action := strings.TrimSpace(query.Action); action != "" {
		add("lower(action) = lower($%d)", action)
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		add("actor_user_id = $%d", actorID)
	}
	if container := strings.TrimSpace(query.Container); container != "" {
		add("container = $%d", container)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		add("lower(status) = lower($%d)", status)
	}
	if path := strings.TrimSpace(query.Path); path != "" {
		add("lower(resource) LIKE lower($%d)", "%"+path+"%")
	}
	if from := strings.TrimSpace(query.From); from != "" {
		add("occurred_at >= $%d::timestamptz", from)
	}
	if to := strings.TrimSpace(query.To); to != "" {
		add("occurred_at <= $%d::timestamptz", to)
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func scanAuditEntry(row pgx.CollectableRow) (model.AuditEntry, error) {
	var e model.AuditEntry
	var occurredAt time.Time
	var detailJSON []byte

	if err := row.Scan(
		&e.Action, &occurredAt,
		&e.Actor.UserID, &e.Actor.Username, &e.Actor.IP,
		&e.Status, &e.Container, &e.Resource, &detailJSON, &e.Error, &e.SessionID,
	); err != nil {
		return model.AuditEntry{}, err
	}

	e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)

	if len(detailJSON) > 0 {
		var detail any
		if jsonErr := json.Unmarshal(detailJSON, &detail); jsonErr == nil {
			e.Detail = detail
		}
	}

	return e, nil
}

// DiscardAudit is the recorder used when no audit database is configured.
type DiscardAudit struct{}

func (DiscardAudit) Record(_ context.Context, entry model.AuditEntry) {
	slog.Debug("audit", "action", entry.Action, "status", entry.Status, "container", entry.Container, "resource", entry.Resource)
}
