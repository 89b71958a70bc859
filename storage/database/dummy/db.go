package dummydb

import (
	"sync"

	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/registration"
	"github.com/trezcool/miradi/core/user"
)

type (
	DB struct {
		user         *userTable
		project      *projectTable
		registration *registrationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	projectTable struct {
		sync.RWMutex
		table map[string]*project.Project
	}

	registrationTable struct {
		sync.RWMutex
		table map[string]*registration.Registration
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		project:      &projectTable{table: make(map[string]*project.Project)},
		registration: &registrationTable{table: make(map[string]*registration.Registration)},
	}
	return db, nil
}
