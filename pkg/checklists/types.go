package checklists

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/checklist/pkg/auth"
)

// ChecklistID identifies a checklist
type ChecklistID uuid.UUID

// NilChecklistID is the zero checklist id
var NilChecklistID ChecklistID

// NewChecklistID generates a random checklist id
func NewChecklistID() ChecklistID {
	return ChecklistID(uuid.New())
}

// ParseChecklistID parses the canonical string form of a checklist id
func ParseChecklistID(s string) (ChecklistID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilChecklistID, fmt.Errorf("%w: invalid checklist id %q", auth.ErrValidation, s)
	}
	return ChecklistID(id), nil
}

func (id ChecklistID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is unset
func (id ChecklistID) IsZero() bool {
	return id == NilChecklistID
}

// MarshalText implements encoding.TextMarshaler
func (id ChecklistID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ChecklistID) UnmarshalText(b []byte) error {
	parsed, err := ParseChecklistID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer
func (id ChecklistID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner
func (id *ChecklistID) Scan(src interface{}) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = ChecklistID(u)
	return nil
}

// Checklist is a task owned by a single user
type Checklist struct {
	ID          ChecklistID `json:"id" db:"id"`
	UserID      auth.UserID `json:"userId" db:"user_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Status      string      `json:"status" db:"status"`
	Priority    string      `json:"priority" db:"priority"`
	AssignedTo  string      `json:"assignedTo" db:"assigned_to"`
	Comments    string      `json:"comments" db:"comments"`
	DueDate     time.Time   `json:"dueDate" db:"due_date"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time  `json:"completedAt,omitempty" db:"completed_at"`
}

// Completed reports whether the checklist has been marked complete
func (c *Checklist) Completed() bool {
	return c.CompletedAt != nil
}

// StatusCompleted is set on a checklist when it is marked complete
const StatusCompleted = "Completed"
