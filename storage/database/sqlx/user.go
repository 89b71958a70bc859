package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/user"
)

type dbUser struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Username            sql.NullString `db:"username"`
	Email               sql.NullString `db:"email"`
	MatriculationNumber sql.NullString `db:"matriculation_number"`
	ProgrammeName       sql.NullString `db:"programme_name"`
	IsActive            bool           `db:"is_active"`
	Roles               pq.StringArray `db:"roles"`
	PasswordHash        []byte         `db:"password_hash"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLogin           sql.NullTime   `db:"last_login"`
}

func (u dbUser) toUser() user.User {
	isActive := u.IsActive
	return user.User{
		ID:                  u.ID,
		Name:                u.Name,
		Username:            u.Username.String,
		Email:               u.Email.String,
		MatriculationNumber: u.MatriculationNumber.String,
		ProgrammeName:       u.ProgrammeName.String,
		IsActive:            &isActive,
		Roles:               u.Roles,
		PasswordHash:        u.PasswordHash,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		LastLogin:           u.LastLogin.Time,
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var userOrderFields = map[string]bool{
	"name":                 true,
	"username":             true,
	"email":                true,
	"matriculation_number": true,
	"programme_name":       true,
	"is_active":            true,
	"created_at":           true,
	"updated_at":           true,
	"last_login":           true,
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapNoRows maps psql "no rows" err to user.ErrNotFound
func (repo *userRepository) trapNoRows(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}
	if len(excluded) == 0 {
		excluded = append(excluded, uuid.Nil.String()) // sqlx.In rejects empty slices
	}

	var unameTaken, emailTaken bool
	query, args, err := sqlx.In(
		`SELECT
			EXISTS(SELECT 1 FROM "user" WHERE username = ? AND ? != '' AND id NOT IN (?)),
			EXISTS(SELECT 1 FROM "user" WHERE email = ? AND ? != '' AND id NOT IN (?))`,
		username, username, excluded, email, email, excluded,
	)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	row := repo.db.QueryRowContext(ctx, repo.db.Rebind(query), args...)
	if err = row.Scan(&unameTaken, &emailTaken); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if unameTaken {
		return user.ErrUsernameExists
	}
	if emailTaken {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO "user" (id, name, username, email, matriculation_number, programme_name, is_active, roles, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		usr.ID, usr.Name, nullStr(usr.Username), nullStr(usr.Email), nullStr(usr.MatriculationNumber),
		nullStr(usr.ProgrammeName), usr.Active(), pq.StringArray(usr.Roles), usr.PasswordHash,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		u     dbUser
		query string
		args  []interface{}
	)
	if filter.ID != "" {
		query = `SELECT * FROM "user" WHERE id = ?`
		args = []interface{}{filter.ID}
	} else {
		unames := make([]string, 0, len(filter.UsernameOrEmail))
		for _, uname := range filter.UsernameOrEmail {
			if uname != "" {
				unames = append(unames, uname)
			}
		}
		if len(unames) == 0 {
			return user.User{}, user.ErrNotFound
		}
		var err error
		query, args, err = sqlx.In(`SELECT * FROM "user" WHERE username IN (?) OR email IN (?)`, unames, unames)
		if err != nil {
			return user.User{}, errors.Wrap(err, "building user query")
		}
	}

	if err := repo.db.GetContext(ctx, &u, repo.db.Rebind(query), args...); err != nil {
		return user.User{}, repo.trapNoRows(err, "getting user")
	}
	return u.toUser(), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, u.toUser())
	}
	return users, nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	if filter != nil {
		if filter.Search != "" {
			where = append(where, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			search := "%" + filter.Search + "%"
			args = append(args, search, search, search)
		}
		if filter.Roles != nil {
			// roles are hierarchical prefixes; match any role starting with one of them
			prefixes := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				prefixes = append(prefixes, role+"%")
			}
			where = append(where, "EXISTS(SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY(?))")
			args = append(args, pq.Array(prefixes))
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	query := `SELECT * FROM "user"`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(ordering, userOrderFields, "created_at ASC")

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, u.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	addSet := func(clause string, arg interface{}) {
		set = append(set, clause)
		args = append(args, arg)
	}
	if usr.Name != "" {
		addSet("name = ?", usr.Name)
	}
	if usr.Username != "" {
		addSet("username = ?", usr.Username)
	}
	if usr.Email != "" {
		addSet("email = ?", usr.Email)
	}
	if usr.MatriculationNumber != "" {
		addSet("matriculation_number = ?", usr.MatriculationNumber)
	}
	if usr.ProgrammeName != "" {
		addSet("programme_name = ?", usr.ProgrammeName)
	}
	if usr.Roles != nil {
		addSet("roles = ?", pq.StringArray(usr.Roles))
	}
	if usr.PasswordHash != nil {
		addSet("password_hash = ?", usr.PasswordHash)
	}
	if isActive != nil {
		addSet("is_active = ?", *isActive)
	}
	addSet("updated_at = ?", usr.UpdatedAt.UTC())
	args = append(args, usr.ID)

	query := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ? RETURNING *`
	var u dbUser
	if err := repo.db.GetContext(ctx, &u, repo.db.Rebind(query), args...); err != nil {
		return user.User{}, repo.trapNoRows(err, "updating user")
	}
	return u.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		return repo.UpdateUser(ctx, usr, usr.IsActive)
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	var u dbUser
	err := repo.db.GetContext(ctx, &u,
		`UPDATE "user" SET last_login = $1 WHERE id = $2 RETURNING *`,
		time.Now().UTC(), usr.ID,
	)
	if err != nil {
		return user.User{}, repo.trapNoRows(err, "setting last login")
	}
	return u.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
