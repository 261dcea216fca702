package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// accountLifecycle lists the statuses each status may move to. Active is
// terminal: accounts are never deactivated through this package.
var accountLifecycle = map[UserStatus][]UserStatus{
	UserStatusPending: {UserStatusActive},
}

// UserStateMachine moves accounts between lifecycle statuses.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// TransitionOption customizes a single transition.
type TransitionOption func(*transition)

// WithStateMachineClock injects a custom clock
func WithStateMachineClock(clock Clock) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.sink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason is published as the "reason" of the status change event.
func WithTransitionReason(reason string) TransitionOption {
	return func(t *transition) {
		t.reason = reason
	}
}

// WithTransitionTx persists the status change on the given transaction.
func WithTransitionTx(tx bun.IDB) TransitionOption {
	return func(t *transition) {
		t.tx = tx
	}
}

// WithActivationTime overrides the activated_at timestamp.
func WithActivationTime(at time.Time) TransitionOption {
	return func(t *transition) {
		t.activatedAt = &at
	}
}

// NewUserStateMachine returns the lifecycle machine persisting through users.
func NewUserStateMachine(users Users, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users:  users,
		now:    time.Now,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users  Users
	now    Clock
	sink   ActivitySink
	logger Logger
}

type transition struct {
	reason      string
	tx          bun.IDB
	activatedAt *time.Time
}

// Transition moves user to target and updates user in place. Moving to the
// current status is a no-op that publishes nothing.
func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	if user == nil || target == "" {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"to":     target,
			"reason": "user and target status are required",
		})
	}

	from := sm.CurrentStatus(user)
	if from == target {
		return user, nil
	}

	if !allowedTransition(from, target) {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	t := transition{}
	for _, opt := range opts {
		if opt != nil {
			opt(&t)
		}
	}

	var updateOpts []StatusUpdateOption
	if target == UserStatusActive {
		if t.activatedAt == nil {
			now := sm.now()
			t.activatedAt = &now
		}
		updateOpts = append(updateOpts, WithActivatedAt(t.activatedAt))
	}

	var (
		updated *User
		err     error
	)
	if t.tx != nil {
		updated, err = sm.users.UpdateStatusTx(ctx, t.tx, user.ID, target, updateOpts...)
	} else {
		updated, err = sm.users.UpdateStatus(ctx, user.ID, target, updateOpts...)
	}
	if err != nil {
		return nil, err
	}

	user.Status = target
	user.ActivatedAt = updated.ActivatedAt
	user.UpdatedAt = updated.UpdatedAt

	var metadata map[string]any
	if t.reason != "" {
		metadata = map[string]any{"reason": t.reason}
	}

	recordActivity(ctx, sm.sink, sm.logger, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		Actor:      actor,
		UserID:     user.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   metadata,
		OccurredAt: sm.now(),
	})

	return user, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}

func allowedTransition(from, to UserStatus) bool {
	for _, next := range accountLifecycle[from] {
		if next == to {
			return true
		}
	}
	return false
}
