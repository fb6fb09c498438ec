package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RegisterCarRoutes mounts the cars resource. Every route sits behind the
// guard; an anonymous caller never reaches a handler.
func RegisterCarRoutes[T any](app router.Router[T], guard router.MiddlewareFunc, controller *CarController) {
	app.Post("/cars", controller.Create, guard).SetName("cars.create")
	app.Get("/cars", controller.List, guard).SetName("cars.list")
	app.Get("/cars/:id", controller.Show, guard).SetName("cars.show")
	app.Delete("/cars/:id", controller.Remove, guard).SetName("cars.remove")
}

type CarController struct {
	Logger Logger
	Repo   RepositoryManager
}

func NewCarController(repo RepositoryManager, logger Logger) *CarController {
	if logger == nil {
		logger = defLogger{}
	}
	if repo == nil {
		panic("Missing RepositoryManager in car controller...")
	}
	return &CarController{
		Logger: logger,
		Repo:   repo,
	}
}

// CreateCarPayload is the POST body
type CreateCarPayload struct {
	Manufacturer string  `form:"manufacturer" json:"manufacturer"`
	Model        string  `form:"model" json:"model"`
	Price        float64 `form:"price" json:"price"`
}

func (r CreateCarPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Manufacturer, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Model, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Price, validation.Min(0.0)),
	)
}

func (c *CarController) Create(ctx router.Context) error {
	payload := new(CreateCarPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"message": "Validation failed.",
			"errors":  FormatValidationErrorToMap(err),
		})
	}

	record := &Car{
		Manufacturer: payload.Manufacturer,
		Model:        payload.Model,
		Price:        payload.Price,
	}

	record, err := c.Repo.Cars().Create(ctx.Context(), record)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, record)
}

func (c *CarController) List(ctx router.Context) error {
	records, _, err := c.Repo.Cars().List(ctx.Context())
	if err != nil {
		return c.respondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, records)
}

func (c *CarController) Show(ctx router.Context) error {
	id, err := parseAccountID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	record, err := c.Repo.Cars().GetByID(ctx.Context(), id.String())
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, record)
}

func (c *CarController) Remove(ctx router.Context) error {
	id, err := parseAccountID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	if err := c.Repo.Cars().Remove(ctx.Context(), id); err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "Car removed.",
	})
}

func (c *CarController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := statusFromCategory(richErr.Category)
		message := richErr.Message
		if status == router.StatusInternalServerError {
			c.Logger.Error("internal error", "error", err)
			message = "Internal server error."
		}
		if status == router.StatusNotFound {
			message = "Car not found."
		}
		return ctx.JSON(status, map[string]string{"message": message})
	}

	c.Logger.Error("unhandled error", "error", err)
	return ctx.JSON(router.StatusInternalServerError, map[string]string{"message": "Internal server error."})
}
