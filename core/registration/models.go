package registration

import (
	"context"
	"time"
)

// Status represents the lifecycle of a Registration, owned by the
// faculty/admin review workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Registration associates a student with a project at a given priority.
type Registration struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ProjectID string    `json:"project_id"`
	Priority  int       `json:"priority"` // 1-based; lower = more preferred
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Candidate is a project eligible for ranking during the registration window.
type Candidate struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	FacultyName   string `json:"faculty_name"`
	ProgrammeName string `json:"programme_name"`
}

// StudentRegistration is the per-student row of a project's registration list.
type StudentRegistration struct {
	RegistrationID      string `json:"registration_id"`
	MatriculationNumber string `json:"matriculation_number"`
	Name                string `json:"name"`
	Priority            int    `json:"priority"`
	Status              Status `json:"status"`
}

// ProjectSummary groups a project's registrations for reviewing roles.
type ProjectSummary struct {
	ProjectID     string                `json:"project_id"`
	Title         string                `json:"title"`
	TotalSignUps  int                   `json:"total_sign_ups"`
	Registrations []StudentRegistration `json:"registrations"`
}

type Repository interface {
	// UpsertRegistration creates the registration or, if one already exists
	// for (student, project), replaces its priority and resets it to pending.
	UpsertRegistration(ctx context.Context, reg Registration) (Registration, error)
	GetRegistrationByID(ctx context.Context, id string) (Registration, error)
	QueryStudentRegistrations(ctx context.Context, studentID string) ([]Registration, error)
	// QueryProjectRegistrations returns a project's registrations joined with
	// student info, ordered by priority then student name.
	QueryProjectRegistrations(ctx context.Context, projectID string) ([]StudentRegistration, error)
	UpdateRegistrationStatus(ctx context.Context, id string, status Status) (Registration, error)
	// DeletePendingRegistrationsExcept removes the student's pending
	// registrations for projects not in keepProjectIDs. Approved and rejected
	// records are never touched.
	DeletePendingRegistrationsExcept(ctx context.Context, studentID string, keepProjectIDs []string) error
}
