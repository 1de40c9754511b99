package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
)

type tenantApi struct {
	svc      *tenant.Service
	validate *validator.Validate
}

func registerTenantAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *tenant.Service, validate *validator.Validate) {
	api := tenantApi{
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/tenants", jwt, adminMiddleware())
	tg.POST("", api.moveIn)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.POST("/:id/move-out", api.moveOut)
	tg.GET("/:id/billing", api.billing)
	tg.POST("/:id/payments/advance", api.createAdvance)
}

func (api *tenantApi) moveIn(ctx echo.Context) error {
	var data tenant.NewTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTenant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.MoveIn(ctx.Request().Context(), data)
	if err != nil {
		switch origErr := errors.Cause(err); origErr {
		case room.ErrNotFound:
			return core.NewValidationError(origErr, core.FieldError{Field: "room_id", Error: origErr.Error()})
		default:
			if vErr, ok := origErr.(*core.ValidationError); ok {
				return vErr
			}
			return errors.Wrap(err, "moving tenant in")
		}
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *tenantApi) query(ctx echo.Context) error {
	filter := new(tenant.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []tenant.Tenant{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tenants, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying tenants")
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	return ctx.JSON(http.StatusOK, tenants)
}

func (api *tenantApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding tenant by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tenantApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding tenant by ID")
	}

	var data tenant.UpdateTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTenant")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating tenant")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tenantApi) moveOut(ctx echo.Context) error {
	t, err := api.svc.MoveOut(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, t)
	case tenant.ErrNotFound:
		return errHttpNotFound
	case tenant.ErrNotActive:
		return errHttpConflict
	default:
		return errors.Wrap(err, "moving tenant out")
	}
}

type BillingResponse struct {
	TenantID     string         `json:"tenant_id"`
	RoomID       string         `json:"room_id"`
	HasSurcharge bool           `json:"has_surcharge"`
	RentDue      string         `json:"rent_due"`
	Charge       billing.Charge `json:"charge"`
}

func (api *tenantApi) billing(ctx echo.Context) error {
	tenancy, charge, err := api.svc.Billing(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "computing tenant billing")
	}
	return ctx.JSON(http.StatusOK, BillingResponse{
		TenantID:     tenancy.TenantID,
		RoomID:       tenancy.RoomID,
		HasSurcharge: tenancy.HasSurcharge,
		RentDue:      tenancy.RentDue.Format("2006-01-02"),
		Charge:       charge.Rounded(),
	})
}

func (api *tenantApi) createAdvance(ctx echo.Context) error {
	pmt, err := api.svc.CreateAdvance(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusCreated, pmt)
	case tenant.ErrNotFound:
		return errHttpNotFound
	case tenant.ErrNotActive, payment.ErrPaymentPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "creating advance payment")
	}
}
