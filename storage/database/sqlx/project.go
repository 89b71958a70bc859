package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
)

type dbProject struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	FacultyName   string    `db:"faculty_name"`
	ProgrammeName string    `db:"programme_name"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (p dbProject) toProject() project.Project {
	return project.Project{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		FacultyName:   p.FacultyName,
		ProgrammeName: p.ProgrammeName,
		Status:        project.Status(p.Status),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

var projectOrderFields = map[string]bool{
	"title":          true,
	"faculty_name":   true,
	"programme_name": true,
	"status":         true,
	"created_at":     true,
	"updated_at":     true,
}

type projectRepository struct {
	db *sqlx.DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *sqlx.DB) project.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) trapNoRows(err error, msg string) error {
	if err == sql.ErrNoRows {
		return project.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *projectRepository) CreateProject(ctx context.Context, prj project.Project) (project.Project, error) {
	prj.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO project (id, title, description, faculty_name, programme_name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		prj.ID, prj.Title, prj.Description, prj.FacultyName, prj.ProgrammeName, prj.Status,
		prj.CreatedAt.UTC(), prj.UpdatedAt.UTC(),
	)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	return prj, nil
}

func (repo *projectRepository) GetProjectByID(ctx context.Context, id string) (project.Project, error) {
	var p dbProject
	if err := repo.db.GetContext(ctx, &p, `SELECT * FROM project WHERE id = $1`, id); err != nil {
		return project.Project{}, repo.trapNoRows(err, "getting project")
	}
	return p.toProject(), nil
}

func (repo *projectRepository) QueryAllProjects(ctx context.Context) ([]project.Project, error) {
	var rows []dbProject
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM project ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	prjs := make([]project.Project, 0, len(rows))
	for _, p := range rows {
		prjs = append(prjs, p.toProject())
	}
	return prjs, nil
}

func (repo *projectRepository) FilterProjects(ctx context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Project, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter != nil {
		if filter.Search != "" {
			where = append(where, "(title ILIKE ? OR faculty_name ILIKE ?)")
			search := "%" + filter.Search + "%"
			args = append(args, search, search)
		}
		if filter.Statuses != nil {
			statuses := make([]string, 0, len(filter.Statuses))
			for _, status := range filter.Statuses {
				statuses = append(statuses, string(status))
			}
			where = append(where, "status IN (?)")
			args = append(args, statuses)
		}
		if filter.ProgrammeName != "" {
			where = append(where, "programme_name = ?")
			args = append(args, filter.ProgrammeName)
		}
	}

	query := `SELECT * FROM project`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(ordering, projectOrderFields, "created_at ASC")

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building project query")
	}
	var rows []dbProject
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering projects")
	}
	prjs := make([]project.Project, 0, len(rows))
	for _, p := range rows {
		prjs = append(prjs, p.toProject())
	}
	return prjs, nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, prj project.Project) (project.Project, error) {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)

	addSet := func(clause string, arg interface{}) {
		set = append(set, clause)
		args = append(args, arg)
	}
	if prj.Title != "" {
		addSet("title = ?", prj.Title)
	}
	if prj.Description != "" {
		addSet("description = ?", prj.Description)
	}
	if prj.FacultyName != "" {
		addSet("faculty_name = ?", prj.FacultyName)
	}
	if prj.ProgrammeName != "" {
		addSet("programme_name = ?", prj.ProgrammeName)
	}
	if prj.Status != "" {
		addSet("status = ?", string(prj.Status))
	}
	addSet("updated_at = ?", prj.UpdatedAt.UTC())
	args = append(args, prj.ID)

	query := `UPDATE project SET ` + strings.Join(set, ", ") + ` WHERE id = ? RETURNING *`
	var p dbProject
	if err := repo.db.GetContext(ctx, &p, repo.db.Rebind(query), args...); err != nil {
		return project.Project{}, repo.trapNoRows(err, "updating project")
	}
	return p.toProject(), nil
}

func (repo *projectRepository) DeleteProjectsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM project WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting projects")
	}
	return nil
}
