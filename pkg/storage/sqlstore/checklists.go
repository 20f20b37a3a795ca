package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/observability"
)

const checklistColumns = `id, user_id, title, description, status, priority, assigned_to, comments,
	due_date, created_at, updated_at, completed_at`

// ChecklistStore persists checklists
type ChecklistStore struct {
	conn   *ConnectionManager
	logger *observability.Logger
	now    func() time.Time
}

// NewChecklistStore creates a checklist store on top of conn
func NewChecklistStore(conn *ConnectionManager, logger *observability.Logger) *ChecklistStore {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &ChecklistStore{
		conn:   conn,
		logger: logger.WithField("component", "checklist_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateChecklist inserts a checklist, assigning an id when unset
func (s *ChecklistStore) CreateChecklist(ctx context.Context, c *checklists.Checklist) error {
	now := s.now()
	if c.ID.IsZero() {
		c.ID = checklists.NewChecklistID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	c.DueDate = c.DueDate.UTC()

	db := s.conn.Primary()
	query := db.Rebind(`INSERT INTO checklists (` + checklistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Title, c.Description, c.Status, c.Priority, c.AssignedTo, c.Comments,
		c.DueDate, c.CreatedAt, c.UpdatedAt, utcPtr(c.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to insert checklist: %w", err)
	}
	return nil
}

// GetChecklist loads a checklist by id
func (s *ChecklistStore) GetChecklist(ctx context.Context, id checklists.ChecklistID) (*checklists.Checklist, error) {
	db := s.conn.Primary()
	query := db.Rebind(`SELECT ` + checklistColumns + ` FROM checklists WHERE id = ?`)

	var c checklists.Checklist
	if err := db.GetContext(ctx, &c, query, id); err != nil {
		return nil, notFound(err, "checklist")
	}
	return &c, nil
}

// UpdateChecklist overwrites the mutable columns of a checklist
func (s *ChecklistStore) UpdateChecklist(ctx context.Context, c *checklists.Checklist) error {
	c.UpdatedAt = s.now()
	c.DueDate = c.DueDate.UTC()

	db := s.conn.Primary()
	query := db.Rebind(`UPDATE checklists SET title = ?, description = ?, status = ?, priority = ?,
		assigned_to = ?, comments = ?, due_date = ?, updated_at = ?, completed_at = ?
		WHERE id = ?`)
	result, err := db.ExecContext(ctx, query,
		c.Title, c.Description, c.Status, c.Priority, c.AssignedTo, c.Comments,
		c.DueDate, c.UpdatedAt, utcPtr(c.CompletedAt), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update checklist: %w", err)
	}
	return requireRow(result, "checklist")
}

// DeleteChecklist removes a checklist
func (s *ChecklistStore) DeleteChecklist(ctx context.Context, id checklists.ChecklistID) error {
	db := s.conn.Primary()
	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM checklists WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete checklist: %w", err)
	}
	return requireRow(result, "checklist")
}

// ListChecklists returns one page of checklists ordered by due date. A nil
// owner lists every user's checklists. Reads go to a replica.
func (s *ChecklistStore) ListChecklists(ctx context.Context, owner *auth.UserID, offset, limit int) ([]checklists.Checklist, error) {
	db := s.conn.Replica()

	query := `SELECT ` + checklistColumns + ` FROM checklists`
	args := make([]interface{}, 0, 3)
	if owner != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *owner)
	}
	query += ` ORDER BY due_date, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	items := make([]checklists.Checklist, 0, limit)
	if err := db.SelectContext(ctx, &items, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}
	return items, nil
}

// CountChecklists returns the total and completed checklist counts
func (s *ChecklistStore) CountChecklists(ctx context.Context) (total int, completed int, err error) {
	db := s.conn.Replica()

	var counts struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	query := `SELECT COUNT(*) AS total, COUNT(completed_at) AS completed FROM checklists`
	if err := db.GetContext(ctx, &counts, query); err != nil {
		return 0, 0, fmt.Errorf("failed to count checklists: %w", err)
	}
	return counts.Total, counts.Completed, nil
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
