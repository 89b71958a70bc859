package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core/registration"
)

type dbRegistration struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	ProjectID string    `db:"project_id"`
	Priority  int       `db:"priority"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r dbRegistration) toRegistration() registration.Registration {
	return registration.Registration{
		ID:        r.ID,
		StudentID: r.StudentID,
		ProjectID: r.ProjectID,
		Priority:  r.Priority,
		Status:    registration.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type dbStudentRegistration struct {
	RegistrationID      string         `db:"registration_id"`
	MatriculationNumber sql.NullString `db:"matriculation_number"`
	Name                string         `db:"name"`
	Priority            int            `db:"priority"`
	Status              string         `db:"status"`
}

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil)

func NewRegistrationRepository(db *sqlx.DB) registration.Repository {
	return &registrationRepository{db: db}
}

func (repo *registrationRepository) trapNoRows(err error, msg string) error {
	if err == sql.ErrNoRows {
		return registration.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *registrationRepository) UpsertRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	reg.ID = uuid.New().String()
	var r dbRegistration
	err := repo.db.GetContext(ctx, &r,
		`INSERT INTO registration (id, student_id, project_id, priority, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (student_id, project_id) DO UPDATE
		 SET priority = EXCLUDED.priority, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		 WHERE registration.status = $8
		 RETURNING *`,
		reg.ID, reg.StudentID, reg.ProjectID, reg.Priority, registration.StatusPending,
		reg.CreatedAt.UTC(), reg.UpdatedAt.UTC(), registration.StatusPending,
	)
	if err == sql.ErrNoRows {
		// an approved or rejected record holds its ground
		return registration.Registration{}, registration.ErrAlreadyDecided
	}
	if err != nil {
		return registration.Registration{}, errors.Wrap(err, "upserting registration")
	}
	return r.toRegistration(), nil
}

func (repo *registrationRepository) GetRegistrationByID(ctx context.Context, id string) (registration.Registration, error) {
	var r dbRegistration
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM registration WHERE id = $1`, id); err != nil {
		return registration.Registration{}, repo.trapNoRows(err, "getting registration")
	}
	return r.toRegistration(), nil
}

func (repo *registrationRepository) QueryStudentRegistrations(ctx context.Context, studentID string) ([]registration.Registration, error) {
	var rows []dbRegistration
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM registration WHERE student_id = $1 ORDER BY priority`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student registrations")
	}
	regs := make([]registration.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, r.toRegistration())
	}
	return regs, nil
}

func (repo *registrationRepository) QueryProjectRegistrations(ctx context.Context, projectID string) ([]registration.StudentRegistration, error) {
	var rows []dbStudentRegistration
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT r.id AS registration_id, u.matriculation_number, u.name, r.priority, r.status
		 FROM registration r
		 JOIN "user" u ON u.id = r.student_id
		 WHERE r.project_id = $1
		 ORDER BY r.priority, u.name`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying project registrations")
	}
	regs := make([]registration.StudentRegistration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, registration.StudentRegistration{
			RegistrationID:      r.RegistrationID,
			MatriculationNumber: r.MatriculationNumber.String,
			Name:                r.Name,
			Priority:            r.Priority,
			Status:              registration.Status(r.Status),
		})
	}
	return regs, nil
}

func (repo *registrationRepository) UpdateRegistrationStatus(ctx context.Context, id string, status registration.Status) (registration.Registration, error) {
	var r dbRegistration
	err := repo.db.GetContext(ctx, &r,
		`UPDATE registration SET status = $1, updated_at = $2 WHERE id = $3 RETURNING *`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return registration.Registration{}, repo.trapNoRows(err, "updating registration status")
	}
	return r.toRegistration(), nil
}

func (repo *registrationRepository) DeletePendingRegistrationsExcept(ctx context.Context, studentID string, keepProjectIDs []string) error {
	if len(keepProjectIDs) == 0 {
		keepProjectIDs = append(keepProjectIDs, uuid.Nil.String()) // sqlx.In rejects empty slices
	}
	query, args, err := sqlx.In(
		`DELETE FROM registration WHERE student_id = ? AND status = ? AND project_id NOT IN (?)`,
		studentID, registration.StatusPending, keepProjectIDs,
	)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting stale registrations")
	}
	return nil
}
