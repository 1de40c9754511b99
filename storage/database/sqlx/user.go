package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.NewTime(usr.CreatedAt, !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt, !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

const selectUser = `SELECT id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login FROM users`

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := pq.StringArray{}
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	var clash struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.GetContext(ctx, &clash,
		`SELECT username, email FROM users
		 WHERE (($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)) AND NOT (id = ANY($3))
		 LIMIT 1`,
		username, email, exclIDs,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if username != "" && clash.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := toUserRow(usr)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO users (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		 VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := selectUser + ` WHERE 1=1`
	args := make([]interface{}, 0, 5)

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			p := placeholder(len(args))
			query += ` AND (name ILIKE ` + p + ` OR username ILIKE ` + p + ` OR email ILIKE ` + p + `)`
		}
		if len(filter.Roles) > 0 {
			prefixes := make(pq.StringArray, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				prefixes = append(prefixes, role+"%")
			}
			args = append(args, prefixes)
			query += ` AND EXISTS (SELECT 1 FROM unnest(roles) r, unnest(` + placeholder(len(args)) + `::text[]) p WHERE r LIKE p)`
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			query += ` AND is_active = ` + placeholder(len(args))
		}
		if !filter.CreatedFrom.IsZero() {
			args = append(args, filter.CreatedFrom.UTC())
			query += ` AND created_at >= ` + placeholder(len(args))
		}
		if !filter.CreatedTo.IsZero() {
			args = append(args, filter.CreatedTo.UTC())
			query += ` AND created_at <= ` + placeholder(len(args))
		}
	}
	query += orderBy(ordering)

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, selectUser+" WHERE "+where, args...)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "username = $1 AND username <> ''", username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = $1 AND email <> ''", email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "(username = $1 OR email = $1) AND $1 <> ''", username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}

	// only save set fields
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	orig.UpdatedAt = usr.UpdatedAt

	row := toUserRow(orig)
	_, err = repo.db.NamedExecContext(ctx,
		`UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active,
		        roles = :roles, password_hash = :password_hash, updated_at = :updated_at
		 WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return errors.Wrap(err, "setting last login")
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.StringArray(ids))
	return errors.Wrap(err, "deleting users")
}
