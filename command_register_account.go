package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// MsgRegistrationReceived is returned for every accepted registration. The
// confirmation token travels only in the email, never in the response.
const MsgRegistrationReceived = "Registration successful. Please check your email for confirmation instructions."

const confirmationMailSubject = "Confirm your registration"
const confirmationMailTemplate = "confirm-registration"

type RegisterAccountMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account *Account `json:"-"`
	Message string   `json:"message"`
}

type RegisterAccountHandler struct {
	repo     RepositoryManager
	issuer   ConfirmationTokenIssuer
	mailer   MailDispatcher
	frontend string
	logger   Logger
}

func NewRegisterAccountHandler(repo RepositoryManager, issuer ConfirmationTokenIssuer, mailer MailDispatcher, frontendURL string) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		issuer:   issuer,
		mailer:   mailer,
		frontend: frontendURL,
		logger:   defLogger{},
	}
}

func (h *RegisterAccountHandler) WithLogger(l Logger) *RegisterAccountHandler {
	if l != nil {
		h.logger = l
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
	account := &Account{}
	var token string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Pre-check exists only to produce the friendly message; the unique
	// index on email decides the race either way.
	if existing, err := h.repo.Accounts().GetByEmail(ctx, event.Email); err == nil && existing != nil {
		return goerrors.New("an account with email "+event.Email+" already exists", goerrors.CategoryConflict).
			WithTextCode(TextCodeEmailTaken).
			WithMetadata(map[string]any{"email": event.Email})
	} else if err != nil && !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		var expiresAt time.Time
		if token, expiresAt, err = h.issuer.Issue(); err != nil {
			return err
		}

		account.PasswordHash = hash
		account.Email = event.Email
		account.Phone = event.Phone
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.SetConfirmation(token, expiresAt)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			// The unique index is the arbiter of the email race; anything
			// else the store reports is a server fault, not a conflict.
			if isUniqueViolation(err) {
				return goerrors.New("an account with email "+event.Email+" already exists", goerrors.CategoryConflict).
					WithTextCode(TextCodeEmailTaken).
					WithMetadata(map[string]any{"email": event.Email})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account")
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

	// Mail goes out after commit. A delivery failure leaves the pending
	// account in place so the user can retry confirmation later.
	h.dispatchConfirmation(ctx, account, token)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			Account: account,
			Message: MsgRegistrationReceived,
		})
	}

	return nil
}

func (h *RegisterAccountHandler) dispatchConfirmation(ctx context.Context, account *Account, token string) {
	link, err := ConfirmationLink(h.frontend, token)
	if err != nil {
		h.logger.Error("failed to build confirmation link", "error", err)
		return
	}

	msg := MailMessage{
		To:       account.Email,
		Subject:  confirmationMailSubject,
		Template: confirmationMailTemplate,
		Context: map[string]any{
			"first_name":   account.FirstName,
			"confirm_link": link,
		},
	}

	if err := h.mailer.Dispatch(ctx, msg); err != nil {
		h.logger.Error("failed to dispatch confirmation email", "to", account.Email, "error", err)
	}
}
