package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/miradi/core/registration"
)

type registrationRepository struct {
	db    *registrationTable
	users *userTable
}

var _ registration.Repository = (*registrationRepository)(nil)

func NewRegistrationRepository(db *DB) registration.Repository {
	return &registrationRepository{db: db.registration, users: db.user}
}

// query expects at least a read lock to be held.
func (repo *registrationRepository) query() []registration.Registration {
	res := make([]registration.Registration, 0, len(repo.db.table))
	for _, reg := range repo.db.table {
		res = append(res, *reg)
	}
	return res
}

func (repo *registrationRepository) UpsertRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == reg.StudentID && existing.ProjectID == reg.ProjectID {
			if existing.Status != registration.StatusPending {
				// an approved or rejected record holds its ground
				return registration.Registration{}, registration.ErrAlreadyDecided
			}
			existing.Priority = reg.Priority
			existing.Status = registration.StatusPending
			existing.UpdatedAt = reg.UpdatedAt
			return *existing, nil
		}
	}

	reg.ID = uuid.New().String()
	repo.db.table[reg.ID] = &reg
	return reg, nil
}

func (repo *registrationRepository) GetRegistrationByID(ctx context.Context, id string) (registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.table[id]; ok {
		return *reg, nil
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) QueryStudentRegistrations(ctx context.Context, studentID string) ([]registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]registration.Registration, 0)
	for _, reg := range repo.query() {
		if reg.StudentID == studentID {
			res = append(res, reg)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Priority < res[j].Priority })
	return res, nil
}

func (repo *registrationRepository) QueryProjectRegistrations(ctx context.Context, projectID string) ([]registration.StudentRegistration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	res := make([]registration.StudentRegistration, 0)
	for _, reg := range repo.query() {
		if reg.ProjectID != projectID {
			continue
		}
		row := registration.StudentRegistration{
			RegistrationID: reg.ID,
			Priority:       reg.Priority,
			Status:         reg.Status,
		}
		if usr, ok := repo.users.table[reg.StudentID]; ok {
			row.MatriculationNumber = usr.MatriculationNumber
			row.Name = usr.Name
		}
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Priority != res[j].Priority {
			return res[i].Priority < res[j].Priority
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (repo *registrationRepository) UpdateRegistrationStatus(ctx context.Context, id string, status registration.Status) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reg, ok := repo.db.table[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	reg.Status = status
	reg.UpdatedAt = nowUTC()
	return *reg, nil
}

func (repo *registrationRepository) DeletePendingRegistrationsExcept(ctx context.Context, studentID string, keepProjectIDs []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	keep := make(map[string]bool, len(keepProjectIDs))
	for _, id := range keepProjectIDs {
		keep[id] = true
	}
	for id, reg := range repo.db.table {
		if reg.StudentID == studentID && reg.Status == registration.StatusPending && !keep[reg.ProjectID] {
			delete(repo.db.table, id)
		}
	}
	return nil
}
