package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var TrackSuccessfulLoginSQL = `UPDATE "users"
SET
	"loggedin_at" = ?,
	"login_attempt_at" = NULL,
	"login_attempts" = 0
WHERE
	"id" = ?;`

var TrackAttemptedLoginSQL = `UPDATE "users"
SET
	"login_attempt_at" = ?,
	"login_attempts" = "login_attempts" + 1
WHERE
	"id" = ?;`

// RestartAttemptedLoginSQL starts a new attempts window
var RestartAttemptedLoginSQL = `UPDATE "users"
SET
	"login_attempt_at" = ?,
	"login_attempts" = 1
WHERE
	"id" = ?;`

type Users interface {
	repository.Repository[*User]

	TrackAttemptedLogin(ctx context.Context, user *User, at time.Time) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error
	TrackSuccessfulLogin(ctx context.Context, user *User, at time.Time) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	ExistsTx(ctx context.Context, tx bun.IDB, email, username string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error)
	Activate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db                  *bun.DB
	stateMachine        UserStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func WithUsersStateMachineOptions(options ...StateMachineOption) UsersOption {
	return func(u *users) {
		if len(options) == 0 {
			return
		}
		u.stateMachineOptions = append(u.stateMachineOptions, options...)
		u.stateMachine = nil
	}
}

func WithUsersStateMachine(sm UserStateMachine) UsersOption {
	return func(u *users) {
		u.stateMachine = sm
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		where := fmt.Sprintf("?TableAlias.%s = ?", opt.column)
		if opt.fold {
			where = fmt.Sprintf("lower(?TableAlias.%s) = lower(?)", opt.column)
		}

		err := q.
			Where(where, opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return created, nil
}

func (a *users) ExistsTx(ctx context.Context, tx bun.IDB, email, username string) (bool, error) {
	return tx.NewSelect().
		Model((*User)(nil)).
		Where("lower(?TableAlias.email) = lower(?)", strings.TrimSpace(email)).
		WhereOr("lower(?TableAlias.username) = lower(?)", strings.TrimSpace(username)).
		Exists(ctx)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User, at time.Time) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user, at)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error {
	// NOTE: the ORM update skips zero values so counters are reset with raw SQL
	if _, err := tx.NewRaw(TrackSuccessfulLoginSQL, at, user.ID.String()).Exec(ctx); err != nil {
		return err
	}

	user.LoggedInAt = &at
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil

	return nil
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User, at time.Time) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user, at)
}

// TrackAttemptedLoginTx counts a failed login. A user without a current
// attempt window (LoginAttemptAt is nil) restarts the stored counter at one.
func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error {
	query := TrackAttemptedLoginSQL
	if user.LoginAttemptAt == nil {
		query = RestartAttemptedLoginSQL
		user.LoginAttempts = 0
	}

	if _, err := tx.NewRaw(query, at, user.ID.String()).Exec(ctx); err != nil {
		return err
	}

	user.LoginAttempts++
	user.LoginAttemptAt = &at

	return nil
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus, opts ...StatusUpdateOption) (*User, error) {
	now := time.Now()
	record := &User{
		ID:        id,
		Status:    status,
		UpdatedAt: &now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	q := tx.NewUpdate().
		Model(record).
		Column("status", "updated_at").
		WherePK()

	if record.ActivatedAt != nil {
		q = q.Column("activated_at")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	updated := &User{}
	if err := tx.NewSelect().Model(updated).Where("?TableAlias.id = ?", id.String()).Limit(1).Scan(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

func (a *users) Activate(ctx context.Context, actor ActorRef, user *User, opts ...TransitionOption) (*User, error) {
	return a.lifecycleMachine().Transition(ctx, actor, user, UserStatusActive, opts...)
}

// StatusUpdateOption allows callers to mutate the user record before persisting status changes.
type StatusUpdateOption func(*User)

// WithActivatedAt sets the ActivatedAt timestamp during a status transition.
func WithActivatedAt(at *time.Time) StatusUpdateOption {
	return func(u *User) {
		u.ActivatedAt = at
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.TrimSpace(record.Email)
	record.Username = strings.TrimSpace(record.Username)
}

// identifierOption is one lookup attempt. Emails and usernames are matched
// case-insensitively, the same way ExistsTx rejects duplicates.
type identifierOption struct {
	column string
	value  string
	fold   bool
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
			fold:   true,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
		fold:   true,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func (a *users) lifecycleMachine() UserStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
