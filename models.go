package registration

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is a regular portal user
	RoleUser UserRole = "user"
	// RoleAdmin manages the infrastructure
	RoleAdmin UserRole = "admin"
)

// UserStatus is the activation state of an account
type UserStatus string

const (
	// UserStatusPending accounts registered but never activated
	UserStatusPending UserStatus = "pending"
	// UserStatusActive accounts may log in
	UserStatusActive UserStatus = "active"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Status         UserStatus `bun:"status,notnull" json:"status,omitempty"`
	LoginAttempts  int        `bun:"login_attempts,notnull,default:0" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	ActivatedAt    *time.Time `bun:"activated_at,nullzero" json:"activated_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the status of records created before it was set
func (u *User) EnsureStatus() {
	if u == nil {
		return
	}
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// IsActive reports whether the account has been activated
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// IsPending reports whether the account still waits for activation
func (u *User) IsPending() bool {
	if u == nil {
		return false
	}
	u.EnsureStatus()
	return u.Status == UserStatusPending
}

const (
	// ActivationRequestedStatus is a key waiting to be used
	ActivationRequestedStatus = "requested"
	// ActivationConsumedStatus is a key that already activated its account
	ActivationConsumedStatus = "consumed"
)

// ActivationKey binds a single-use key to the account it activates
type ActivationKey struct {
	bun.BaseModel `bun:"table:activation_keys,alias:actk"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Key returns the opaque value embedded in the activation link
func (k *ActivationKey) Key() string {
	if k == nil {
		return ""
	}
	return k.ID.String()
}

// IsConsumed reports whether the key was already used
func (k *ActivationKey) IsConsumed() bool {
	return k != nil && k.Status == ActivationConsumedStatus
}

// MarkActivationKeyConsumed will create a new instance
func MarkActivationKeyConsumed(id uuid.UUID, at time.Time) *ActivationKey {
	k := &ActivationKey{}
	k.ID = id
	k.Status = ActivationConsumedStatus
	k.ConsumedAt = &at
	k.UpdatedAt = &at
	return k
}
