package accounts

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

const (
	MsgLoginSuccessful = "Login successful."
	MsgInvalidID       = "ID must be a valid UUID."
	MsgUserNotFound    = "User not found."
)

// RegisterAccountRoutes mounts the auth endpoints. The directory endpoints
// are mounted behind the given guard; the register, login and confirm
// endpoints stay open.
func RegisterAccountRoutes[T any](app router.Router[T], guard router.MiddlewareFunc, opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Post("/auth/register", controller.RegistrationCreate).SetName("auth.register")
	app.Post("/auth/login", controller.LoginPost).SetName("auth.login")
	app.Post("/auth/confirm-registration", controller.ConfirmRegistration).SetName("auth.confirm")

	app.Get("/auth", controller.ListAccounts, guard).SetName("auth.list")
	app.Get("/auth/:id", controller.ShowAccount, guard).SetName("auth.show")
	app.Patch("/auth/:id", controller.UpdateAccount, guard).SetName("auth.update")
	app.Delete("/auth/:id", controller.RemoveAccount, guard).SetName("auth.remove")
}

type AccountController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Auther Authenticator
	Mailer MailDispatcher
	Issuer ConfirmationTokenIssuer

	// FrontendURL is the base for confirmation links in outbound email
	FrontendURL string
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(l Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer MailDispatcher) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerIssuer(issuer ConfirmationTokenIssuer) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Issuer = issuer
		return c
	}
}

func WithControllerFrontendURL(frontendURL string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.FrontendURL = frontendURL
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in account controller...")
	}

	if c.Issuer == nil {
		c.Issuer = NewConfirmationIssuer(DefaultConfirmationTTL)
	}

	if c.Mailer == nil {
		c.Mailer = NewLogDispatcher(nil, c.Logger)
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginResponse is the success body for the login endpoint
type LoginResponse struct {
	JWTToken string `json:"jwtToken"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	token, identity, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		JWTToken: token,
		Role:     identity.Role(),
		Message:  MsgLoginSuccessful,
	})
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidateOptionalPhone)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	if a.Debug {
		safe := *payload
		safe.Password = "[redacted]"
		safe.ConfirmPassword = "[redacted]"
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(safe))
		fmt.Println("============================")
	}

	var res *RegisterAccountResponse

	req := RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterAccountResponse) {
			res = resp
		},
	}

	registerAccount := NewRegisterAccountHandler(a.Repo, a.Issuer, a.Mailer, a.FrontendURL).
		WithLogger(a.Logger)

	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]string{
		"message": res.Message,
	})
}

// ConfirmRegistrationPayload carries the raw confirmation token
type ConfirmRegistrationPayload struct {
	Token string `form:"token" json:"token"`
}

func (r ConfirmRegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AccountController) ConfirmRegistration(ctx router.Context) error {
	payload := new(ConfirmRegistrationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("confirm parse payload", "error", err)
		return a.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body"))
	}

	// the frontend link carries the token in the query string
	if payload.Token == "" {
		payload.Token = ctx.Query("token", "")
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	var res *ConfirmAccountResponse

	req := ConfirmAccountMessage{
		Token: payload.Token,
		OnResponse: func(resp *ConfirmAccountResponse) {
			res = resp
		},
	}

	confirmAccount := NewConfirmAccountHandler(a.Repo)

	if err := confirmAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("confirm account error", "error", err)
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": res.Message,
	})
}

func (a *AccountController) ListAccounts(ctx router.Context) error {
	records, _, err := a.Repo.Accounts().List(ctx.Context())
	if err != nil {
		return a.respondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, records)
}

func (a *AccountController) ShowAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	record, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

// UpdateAccountPayload is the PATCH body; only set fields are applied
type UpdateAccountPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

func (r UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.By(ValidateOptionalPhone)),
	)
}

func (a *AccountController) UpdateAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	payload := new(UpdateAccountPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidationError(ctx, err)
	}

	record, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.respondError(ctx, err)
	}

	if payload.FirstName != "" {
		record.FirstName = payload.FirstName
	}
	if payload.LastName != "" {
		record.LastName = payload.LastName
	}
	if payload.Phone != "" {
		record.Phone = payload.Phone
	}

	record, err = a.Repo.Accounts().Update(ctx.Context(), record, repository.UpdateByID(id.String()))
	if err != nil {
		return a.respondError(ctx, err)
	}

	a.Logger.Info("accounts update", "id", id.String())

	return ctx.JSON(router.StatusOK, record)
}

func (a *AccountController) RemoveAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx)
	if err != nil {
		return a.respondError(ctx, err)
	}

	if err := a.Repo.Accounts().Remove(ctx.Context(), id); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "User removed.",
	})
}

func parseAccountID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id", "")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.New(MsgInvalidID, goerrors.CategoryValidation)
	}
	return id, nil
}

func (a *AccountController) respondValidationError(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"message": "Validation failed.",
		"errors":  FormatValidationErrorToMap(err),
	})
}

// respondError maps the error taxonomy to HTTP statuses. NotFound stays
// distinct from the unauthenticated class; token and credential failures
// never expose more than their public message.
func (a *AccountController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		if repository.IsRecordNotFound(err) {
			return ctx.JSON(router.StatusNotFound, map[string]string{"message": MsgUserNotFound})
		}
		a.Logger.Error("unhandled error", "error", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"message": "Internal server error."})
	}

	status := statusFromCategory(richErr.Category)
	message := richErr.Message
	if richErr.TextCode == TextCodeInvalidCredentials {
		message = "Invalid email or password."
	}
	if status == router.StatusInternalServerError {
		a.Logger.Error("internal error", "error", err)
		message = "Internal server error."
	}

	if status == router.StatusNotFound {
		message = MsgUserNotFound
	}

	return ctx.JSON(status, map[string]string{"message": message})
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return router.StatusTooManyRequests
	default:
		return router.StatusInternalServerError
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidateOptionalPhone accepts an empty value or a parseable phone number
func ValidateOptionalPhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	region := ""
	if !strings.HasPrefix(s, "+") {
		region = "US"
	}

	num, err := phonenumbers.Parse(s, region)
	if err != nil {
		return errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
