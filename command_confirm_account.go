package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Confirmation outcomes. Unknown and expired tokens share one message so the
// endpoint leaks nothing about which tokens exist.
const (
	MsgConfirmationInvalid   = "Invalid or expired confirmation link."
	MsgAlreadyConfirmed      = "Registration already confirmed. Please log in."
	MsgConfirmationSucceeded = "Registration confirmed. You may now log in."
)

type ConfirmAccountMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

type ConfirmAccountResponse struct {
	Confirmed bool   `json:"confirmed"`
	Message   string `json:"message"`
}

type ConfirmAccountHandler struct {
	repo RepositoryManager
}

func NewConfirmAccountHandler(repo RepositoryManager) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{repo: repo}
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	resp := &ConfirmAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByConfirmationTokenTx(ctx, tx, event.Token)
		if err != nil {
			// unknown token is part of the expected flow, not an application error
			if goerrors.IsNotFound(err) {
				resp.Message = MsgConfirmationInvalid
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve confirmation request")
		}

		if account.ConfirmationExpired(time.Now()) {
			resp.Message = MsgConfirmationInvalid
			return nil
		}

		if account.Confirmed {
			resp.Confirmed = true
			resp.Message = MsgAlreadyConfirmed
			return nil
		}

		if _, err := h.repo.Accounts().MarkConfirmedTx(ctx, tx, account.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
		}

		resp.Confirmed = true
		resp.Message = MsgConfirmationSucceeded
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to execute account confirmation")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
