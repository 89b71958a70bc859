package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/miradi/core"
)

// Status represents the proposal lifecycle of a Project.
type Status string

const (
	// StatusProposed means the project awaits admin review.
	StatusProposed Status = "proposed"
	// StatusOpen means students may rank and register for the project.
	StatusOpen Status = "open"
	// StatusClosed means the registration window for the project has ended.
	StatusClosed Status = "closed"
)

var Statuses = []Status{StatusProposed, StatusOpen, StatusClosed}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	FacultyName   string    `json:"faculty_name"`
	ProgrammeName string    `json:"programme_name"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewProject contains information needed to propose a new Project.
type NewProject struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	FacultyName   string `json:"faculty_name" validate:"required"`
	ProgrammeName string `json:"programme_name" validate:"required"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	np.FacultyName = core.CleanString(np.FacultyName)
	np.ProgrammeName = core.CleanString(np.ProgrammeName)
	return validate.Struct(np)
}

// UpdateProject defines what information may be provided to modify an existing Project.
type UpdateProject struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	FacultyName   string `json:"faculty_name"`
	ProgrammeName string `json:"programme_name"`
}

func (up *UpdateProject) Validate(validate *validator.Validate, orig Project) error {
	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	if desc := core.CleanString(up.Description); desc != "" {
		up.Description = desc
	} else {
		up.Description = orig.Description
	}
	if fac := core.CleanString(up.FacultyName); fac != "" {
		up.FacultyName = fac
	} else {
		up.FacultyName = orig.FacultyName
	}
	if prog := core.CleanString(up.ProgrammeName); prog != "" {
		up.ProgrammeName = prog
	} else {
		up.ProgrammeName = orig.ProgrammeName
	}
	return validate.Struct(up)
}

type QueryFilter struct {
	Search        string   `query:"search"`
	Statuses      []Status `query:"status"`
	ProgrammeName string   `query:"programme_name"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Statuses == nil && qf.ProgrammeName == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ProgrammeName = core.CleanString(qf.ProgrammeName)
}
