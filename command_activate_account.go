package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Activation failure codes rendered by the activation failed page
const (
	ActivationErrorInvalidKey       = "invalid_key"
	ActivationErrorExpired          = "expired"
	ActivationErrorAlreadyActivated = "already_activated"
)

type ActivateAccountMessage struct {
	ActivationKey string `json:"activation_key"`
	OnResponse    func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

type ActivateAccountResponse struct {
	User *User
	Key  *ActivationKey
}

type ActivateAccountHandler struct {
	repo         RepositoryManager
	cfg          RegistrationConfig
	activitySink ActivitySink
	logger       Logger
	now          Clock
}

type ActivateAccountOption func(*ActivateAccountHandler)

func WithActivateActivitySink(sink ActivitySink) ActivateAccountOption {
	return func(h *ActivateAccountHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

func WithActivateLogger(logger Logger) ActivateAccountOption {
	return func(h *ActivateAccountHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithActivateClock(clock Clock) ActivateAccountOption {
	return func(h *ActivateAccountHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

func NewActivateAccountHandler(repo RepositoryManager, cfg RegistrationConfig, opts ...ActivateAccountOption) *ActivateAccountHandler {
	h := &ActivateAccountHandler{
		repo:         repo,
		cfg:          cfg,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		err := h.execute(ctx, event)
		if err != nil {
			recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
				EventType:  ActivityEventActivationFailure,
				OccurredAt: h.now(),
				Metadata: map[string]any{
					"code":  ActivationErrorCode(err),
					"error": err.Error(),
				},
			})
		}
		return err
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if event.ActivationKey == "" {
		return ErrActivationKeyInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now()
	var key *ActivationKey
	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		key, err = h.repo.ActivationKeys().GetByKeyTx(ctx, tx, event.ActivationKey)
		if err != nil {
			return err
		}

		if key.User == nil {
			return ErrActivationKeyInvalid
		}

		if key.IsConsumed() || key.User.IsActive() {
			return ErrAlreadyActivated
		}

		if key.CreatedAt != nil {
			expired, err := IsOutsideThresholdPeriodAt(*key.CreatedAt, activationWindow(h.cfg.GetActivationDays()), now)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid activation window")
			}
			if expired {
				return ErrActivationKeyExpired
			}
		}

		if err := h.repo.ActivationKeys().ConsumeTx(ctx, tx, key, now); err != nil {
			return err
		}

		user, err = h.repo.Users().Activate(ctx,
			ActorRef{ID: key.User.ID.String(), Type: "user"},
			key.User,
			WithTransitionTx(tx),
			WithActivationTime(now),
			WithTransitionReason("activation key"),
		)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType:  ActivityEventAccountActivated,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		FromStatus: UserStatusPending,
		ToStatus:   user.Status,
		OccurredAt: now,
	})

	if event.OnResponse != nil {
		event.OnResponse(&ActivateAccountResponse{
			User: user,
			Key:  key,
		})
	}

	return nil
}

// ActivationErrorCode maps an activation error to the code shown to the user
func ActivationErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsError(err, ErrActivationKeyExpired):
		return ActivationErrorExpired
	case IsError(err, ErrAlreadyActivated):
		return ActivationErrorAlreadyActivated
	default:
		return ActivationErrorInvalidKey
	}
}
