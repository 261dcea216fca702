package registration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivationKeys stores the single-use keys mailed to new accounts
type ActivationKeys interface {
	repository.Repository[*ActivationKey]

	IssueTx(ctx context.Context, tx bun.IDB, user *User, issuedAt time.Time) (*ActivationKey, error)
	GetByKey(ctx context.Context, key string) (*ActivationKey, error)
	GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*ActivationKey, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, record *ActivationKey, at time.Time) error
}

type activationKeys struct {
	repository.Repository[*ActivationKey]
	db *bun.DB
}

var _ ActivationKeys = (*activationKeys)(nil)

// NewActivationKeysRepository returns the bun backed key store
func NewActivationKeysRepository(db *bun.DB) ActivationKeys {
	handlers := repository.ModelHandlers[*ActivationKey]{
		NewRecord: func() *ActivationKey {
			return &ActivationKey{}
		},
		GetID: func(record *ActivationKey) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivationKey, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "email"
		},
	}

	return &activationKeys{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (r *activationKeys) IssueTx(ctx context.Context, tx bun.IDB, user *User, issuedAt time.Time) (*ActivationKey, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrIdentityNotFound
	}

	record := &ActivationKey{
		ID:        uuid.New(),
		UserID:    user.ID,
		Email:     user.Email,
		Status:    ActivationRequestedStatus,
		CreatedAt: &issuedAt,
		UpdatedAt: &issuedAt,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *activationKeys) GetByKey(ctx context.Context, key string) (*ActivationKey, error) {
	return r.GetByKeyTx(ctx, r.db, key)
}

// GetByKeyTx loads the key with its user. Malformed and unknown keys
// both return ErrActivationKeyInvalid.
func (r *activationKeys) GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*ActivationKey, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, ErrActivationKeyInvalid.Clone().WithMetadata(map[string]any{
			"reason": "malformed",
		})
	}

	record := &ActivationKey{}
	err = tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActivationKeyInvalid.Clone().WithMetadata(map[string]any{
				"reason": "unknown",
			})
		}
		return nil, err
	}

	return record, nil
}

// ConsumeTx marks the key as used. Only one caller can win, the rest get
// ErrAlreadyActivated.
func (r *activationKeys) ConsumeTx(ctx context.Context, tx bun.IDB, record *ActivationKey, at time.Time) error {
	consumed := MarkActivationKeyConsumed(record.ID, at)

	res, err := tx.NewUpdate().
		Model(consumed).
		Column("status", "consumed_at", "updated_at").
		WherePK().
		Where("?TableAlias.status = ?", ActivationRequestedStatus).
		Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrAlreadyActivated
	}

	record.Status = consumed.Status
	record.ConsumedAt = consumed.ConsumedAt
	record.UpdatedAt = consumed.UpdatedAt

	return nil
}
