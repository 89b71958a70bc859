package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
)

func nowUTC() time.Time { return time.Now().UTC() }

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

// query expects at least a read lock to be held.
func (repo *projectRepository) query() []project.Project {
	res := make([]project.Project, 0, len(repo.db.table))
	for _, prj := range repo.db.table {
		res = append(res, *prj)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res
}

func (repo *projectRepository) CreateProject(ctx context.Context, prj project.Project) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prj.ID = uuid.New().String()
	repo.db.table[prj.ID] = &prj
	return prj, nil
}

func (repo *projectRepository) GetProjectByID(ctx context.Context, id string) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prj, ok := repo.db.table[id]; ok {
		return *prj, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryAllProjects(ctx context.Context) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *projectRepository) FilterProjects(ctx context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]project.Project, 0)
	for _, prj := range repo.query() {
		if filter != nil && !matchProject(prj, filter) {
			continue
		}
		res = append(res, prj)
	}
	return res, nil
}

func matchProject(prj project.Project, filter *project.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(prj.Title), search) ||
			strings.Contains(strings.ToLower(prj.FacultyName), search)) {
			return false
		}
	}
	if filter.Statuses != nil {
		var found bool
		for _, status := range filter.Statuses {
			if prj.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ProgrammeName != "" && !strings.EqualFold(prj.ProgrammeName, filter.ProgrammeName) {
		return false
	}
	return true
}

func (repo *projectRepository) UpdateProject(ctx context.Context, prj project.Project) (project.Project, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[prj.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}

	if prj.Title != "" {
		orig.Title = prj.Title
	}
	if prj.Description != "" {
		orig.Description = prj.Description
	}
	if prj.FacultyName != "" {
		orig.FacultyName = prj.FacultyName
	}
	if prj.ProgrammeName != "" {
		orig.ProgrammeName = prj.ProgrammeName
	}
	if prj.Status != "" {
		orig.Status = prj.Status
	}
	orig.UpdatedAt = prj.UpdatedAt
	return *orig, nil
}

func (repo *projectRepository) DeleteProjectsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
