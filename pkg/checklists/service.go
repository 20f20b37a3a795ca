package checklists

import (
	"context"
	"time"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/validation"
)

// MaxFieldLength bounds every checklist text field
const MaxFieldLength = 100

// Repository is the persistence the checklist service needs
type Repository interface {
	CreateChecklist(ctx context.Context, c *Checklist) error
	GetChecklist(ctx context.Context, id ChecklistID) (*Checklist, error)
	UpdateChecklist(ctx context.Context, c *Checklist) error
	DeleteChecklist(ctx context.Context, id ChecklistID) error
	ListChecklists(ctx context.Context, owner *auth.UserID, offset, limit int) ([]Checklist, error)
}

// Request is the body of a create or update
type Request struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	AssignedTo  string    `json:"assignedTo"`
	Comments    string    `json:"comments"`
	DueDate     time.Time `json:"dueDate"`
}

// Validate checks that every field is present and within bounds
func (r Request) Validate() error {
	return validation.NewValidator().
		RequiredMaxLen("title", r.Title, MaxFieldLength).
		RequiredMaxLen("description", r.Description, MaxFieldLength).
		RequiredMaxLen("status", r.Status, MaxFieldLength).
		RequiredMaxLen("priority", r.Priority, MaxFieldLength).
		RequiredMaxLen("assignedTo", r.AssignedTo, MaxFieldLength).
		RequiredMaxLen("comments", r.Comments, MaxFieldLength).
		RequiredTime("dueDate", r.DueDate).
		Err()
}

func (r Request) apply(c *Checklist) {
	c.Title = r.Title
	c.Description = r.Description
	c.Status = r.Status
	c.Priority = r.Priority
	c.AssignedTo = r.AssignedTo
	c.Comments = r.Comments
	c.DueDate = r.DueDate.UTC()
}

// Service manages checklists. Ownership is read from the stored row, so
// lookups happen before the access check; no mutation happens before it.
type Service struct {
	repo   Repository
	policy *auth.AccessPolicy
	logger *observability.Logger
	now    func() time.Time
}

// NewService creates a checklist service
func NewService(repo Repository, policy *auth.AccessPolicy, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		repo:   repo,
		policy: policy,
		logger: logger.WithField("component", "checklists"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new checklist owned by the caller
func (s *Service) Create(ctx context.Context, p *auth.Principal, req Request) (*Checklist, error) {
	if p == nil {
		return nil, s.policy.Evaluate(nil, auth.NilUserID).Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &Checklist{ID: NewChecklistID(), UserID: p.UserID}
	req.apply(c)
	if err := s.repo.CreateChecklist(ctx, c); err != nil {
		return nil, err
	}

	observability.FromContextOr(ctx, s.logger).WithField("checklist_id", c.ID.String()).Info("Checklist created")
	return c, nil
}

// Get returns a checklist owned by p, or any checklist for an admin
func (s *Service) Get(ctx context.Context, p *auth.Principal, id ChecklistID) (*Checklist, error) {
	return s.load(ctx, p, id)
}

// Update replaces the fields of a checklist
func (s *Service) Update(ctx context.Context, p *auth.Principal, id ChecklistID, req Request) (*Checklist, error) {
	c, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	req.apply(c)
	if err := s.repo.UpdateChecklist(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Complete marks a checklist done. Completing twice keeps the first timestamp.
func (s *Service) Complete(ctx context.Context, p *auth.Principal, id ChecklistID) (*Checklist, error) {
	c, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if c.Completed() {
		return c, nil
	}

	now := s.now()
	c.CompletedAt = &now
	c.Status = StatusCompleted
	if err := s.repo.UpdateChecklist(ctx, c); err != nil {
		return nil, err
	}

	observability.FromContextOr(ctx, s.logger).WithField("checklist_id", id.String()).Info("Checklist completed")
	return c, nil
}

// Delete removes a checklist and returns it as it was
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id ChecklistID) (*Checklist, error) {
	c, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteChecklist(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns one page of checklists. Non-admins always get their own; an
// admin gets the owner's when owner is set and everyone's otherwise.
func (s *Service) List(ctx context.Context, p *auth.Principal, owner *auth.UserID, page, pageSize int) ([]Checklist, error) {
	switch {
	case p == nil:
		return nil, s.policy.Evaluate(nil, auth.NilUserID).Err()
	case owner != nil:
		if err := s.policy.Evaluate(p, *owner).Err(); err != nil {
			return nil, err
		}
	case !p.IsAdmin():
		self := p.UserID
		owner = &self
	}

	offset, limit, err := validation.Page(page, pageSize)
	if err != nil {
		return nil, err
	}
	return s.repo.ListChecklists(ctx, owner, offset, limit)
}

// load fetches a checklist and checks that p may act on it
func (s *Service) load(ctx context.Context, p *auth.Principal, id ChecklistID) (*Checklist, error) {
	if p == nil {
		return nil, s.policy.Evaluate(nil, auth.NilUserID).Err()
	}
	c, err := s.repo.GetChecklist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(p, c.UserID).Err(); err != nil {
		return nil, err
	}
	return c, nil
}
