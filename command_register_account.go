package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"

	"github.com/scionlab/go-registration/mail"
)

type RegisterAccountMessage struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password1   string `json:"-"`
	Password2   string `json:"-"`
	PhoneNumber string `json:"phone_number"`
	// Scheme and Host of the request, used to build the activation link
	Scheme     string `json:"-"`
	Host       string `json:"-"`
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate runs the registration form rules on the message
func (e RegisterAccountMessage) Validate() error {
	payload := e.payload()
	return payload.Validate()
}

func (e RegisterAccountMessage) payload() RegistrationPayload {
	payload := RegistrationPayload{
		Email:       e.Email,
		Username:    e.Username,
		Password1:   e.Password1,
		Password2:   e.Password2,
		PhoneNumber: e.PhoneNumber,
	}
	payload.Normalize()
	return payload
}

type RegisterAccountResponse struct {
	User    *User
	Key     *ActivationKey
	Message mail.Message
}

type RegisterAccountHandler struct {
	repo         RepositoryManager
	mailer       mail.Mailer
	composer     *ActivationEmailComposer
	cfg          RegistrationConfig
	activitySink ActivitySink
	logger       Logger
	now          Clock
}

type RegisterAccountOption func(*RegisterAccountHandler)

func WithRegisterActivitySink(sink ActivitySink) RegisterAccountOption {
	return func(h *RegisterAccountHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

func WithRegisterLogger(logger Logger) RegisterAccountOption {
	return func(h *RegisterAccountHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithRegisterClock(clock Clock) RegisterAccountOption {
	return func(h *RegisterAccountHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

func NewRegisterAccountHandler(repo RepositoryManager, mailer mail.Mailer, composer *ActivationEmailComposer, cfg RegistrationConfig, opts ...RegisterAccountOption) *RegisterAccountHandler {
	h := &RegisterAccountHandler{
		repo:         repo,
		mailer:       mailer,
		composer:     composer,
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

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if !h.cfg.GetRegistrationOpen() {
		return ErrRegistrationClosed
	}

	payload := event.payload()
	if err := payload.Validate(); err != nil {
		return goerrors.New("invalid registration payload", goerrors.CategoryValidation).
			WithTextCode("INVALID_REGISTRATION").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"fields": FormatValidationErrorToMap(err),
			})
	}

	phone, err := NormalizePhoneNumber(payload.PhoneNumber, h.cfg.GetDefaultPhoneRegion())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now()
	user := &User{}
	var key *ActivationKey

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := h.repo.Users().ExistsTx(ctx, tx, payload.Email, payload.Username)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing accounts")
		}

		if exists {
			return ErrDuplicateAccount
		}

		hash, err := HashPassword(payload.Password1)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = payload.Email
		user.Username = payload.Username
		user.Phone = phone
		user.Role = RoleUser
		user.Status = UserStatusPending
		user.CreatedAt = &now
		user.UpdatedAt = &now

		if h.cfg.GetUseHashid() {
			if id, err := hashid.NewUUID(payload.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if key, err = h.repo.ActivationKeys().IssueTx(ctx, tx, user, now); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create activation key")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType:  ActivityEventAccountRegistered,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		ToStatus:   user.Status,
		OccurredAt: now,
		Metadata: map[string]any{
			"email": user.Email,
		},
	})

	msg, err := h.composer.Compose(ActivationEmailContext{
		User:   user,
		Key:    key,
		Scheme: event.Scheme,
		Host:   event.Host,
	})
	if err != nil {
		return err
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send activation email").
			WithMetadata(map[string]any{"user_id": user.ID.String()})
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType:  ActivityEventActivationSent,
		Actor:      ActorRef{Type: "system"},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
		Metadata: map[string]any{
			"recipients": msg.Recipients(),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			User:    user,
			Key:     key,
			Message: msg,
		})
	}

	return nil
}
