package project

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
)

var (
	// errors
	ErrNotFound         = errors.New("project not found")
	ErrInvalidStatus    = errors.New("invalid project status")
	ErrNotOpen          = errors.New("project is not open for registration")
	errClosedTransition = errors.New("a closed project cannot be reopened")
)

type (
	Repository interface {
		CreateProject(ctx context.Context, prj Project) (Project, error)
		GetProjectByID(ctx context.Context, id string) (Project, error)
		QueryAllProjects(ctx context.Context) ([]Project, error)
		// FilterProjects applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Project.Title or Project.FacultyName.
		FilterProjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error)
		UpdateProject(ctx context.Context, prj Project) (Project, error)
		DeleteProjectsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		Propose(ctx context.Context, np NewProject) (Project, error)
		GetByID(ctx context.Context, id string) (Project, error)
		QueryAll(ctx context.Context) ([]Project, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error)
		// OpenForRegistration returns the projects students may currently rank.
		OpenForRegistration(ctx context.Context) ([]Project, error)
		Update(ctx context.Context, id string, up UpdateProject) (Project, error)
		SetStatus(ctx context.Context, id string, status Status) (Project, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Propose(ctx context.Context, np NewProject) (Project, error) {
	now := time.Now().UTC()
	prj := Project{
		Title:         np.Title,
		Description:   np.Description,
		FacultyName:   np.FacultyName,
		ProgrammeName: np.ProgrammeName,
		Status:        StatusProposed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateProject(ctx, prj)
}

func (svc *service) GetByID(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProjectByID(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context) ([]Project, error) {
	return svc.repo.QueryAllProjects(ctx)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Project, error) {
	return svc.repo.FilterProjects(ctx, filter, ordering)
}

func (svc *service) OpenForRegistration(ctx context.Context) ([]Project, error) {
	return svc.repo.FilterProjects(
		ctx,
		&QueryFilter{Statuses: []Status{StatusOpen}},
		[]core.DBOrdering{{Field: "title", Ascending: true}},
	)
}

func (svc *service) Update(ctx context.Context, id string, up UpdateProject) (Project, error) {
	prj := Project{
		ID:            id,
		Title:         up.Title,
		Description:   up.Description,
		FacultyName:   up.FacultyName,
		ProgrammeName: up.ProgrammeName,
		UpdatedAt:     time.Now().UTC(),
	}
	return svc.repo.UpdateProject(ctx, prj)
}

func (svc *service) SetStatus(ctx context.Context, id string, status Status) (Project, error) {
	if !status.Valid() {
		return Project{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}

	prj, err := svc.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if prj.Status == StatusClosed && status == StatusOpen {
		return Project{}, core.NewValidationError(errClosedTransition, core.FieldError{Field: "status", Error: errClosedTransition.Error()})
	}

	prj.Status = status
	prj.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProject(ctx, prj)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteProjectsByID(ctx, ids...)
}
