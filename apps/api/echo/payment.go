package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/tenant"
	"github.com/tahanan-ph/tahanan/core/user"
)

type paymentApi struct {
	svc       *payment.Service
	tenantSvc *tenant.Service
	userSvc   *user.Service
	validate  *validator.Validate
}

func registerPaymentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *payment.Service,
	tenantSvc *tenant.Service,
	userSvc *user.Service,
	validate *validator.Validate,
) {
	api := paymentApi{
		svc:       svc,
		tenantSvc: tenantSvc,
		userSvc:   userSvc,
		validate:  validate,
	}

	// admin endpoints
	pg := g.Group("/payments", jwt, adminMiddleware())
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/stats", api.stats)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
	pg.POST("/:id/mark-paid", api.markPaid)
	pg.POST("/:id/mark-failed", api.markFailed)
	pg.POST("/:id/cancel", api.cancel)

	// tenant portal endpoints; the tenancy is resolved from the caller's
	// profile, never from request parameters
	tp := g.Group("/portal", jwt, tenantMiddleware())
	tp.GET("/me", api.portalMe)
	tp.GET("/billing", api.portalBilling)
	tp.GET("/payments", api.portalPayments)
	tp.POST("/payments/advance", api.portalCreateAdvance)
	tp.POST("/payments/:id/checkout", api.portalCheckout)
	tp.POST("/payments/:id/confirm", api.portalConfirm)
}

// Admin handlers

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.tenantSvc.GetByID(ctx.Request().Context(), data.TenantID)
	if err != nil {
		if origErr := errors.Cause(err); origErr == tenant.ErrNotFound {
			return core.NewValidationError(origErr, core.FieldError{Field: "tenant_id", Error: origErr.Error()})
		}
		return errors.Wrap(err, "finding tenant by ID")
	}

	pmt, err := api.svc.Create(ctx.Request().Context(), data, t.RoomID)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			return vErr
		}
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) stats(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = new(payment.QueryFilter)
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing payment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding payment by ID")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) update(ctx echo.Context) error {
	var data payment.UpdatePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, pmt)
	case payment.ErrNotFound:
		return errHttpNotFound
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "updating payment")
	}
}

func (api *paymentApi) destroy(ctx echo.Context) error {
	err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.NoContent(http.StatusNoContent)
	case payment.ErrNotFound:
		return errHttpNotFound
	default:
		return errors.Wrap(err, "deleting payment")
	}
}

type MarkPaidRequest struct {
	ReferenceNo string `json:"reference_no"`
	Method      string `json:"method" validate:"omitempty,oneof=stripe cash bank_transfer gcash paymaya"`
}

func (mr *MarkPaidRequest) Validate(validate *validator.Validate) error {
	mr.ReferenceNo = core.CleanString(mr.ReferenceNo)
	mr.Method = core.CleanString(mr.Method, true /* lower */)
	if mr.Method == "" {
		mr.Method = payment.MethodCash
	}
	return validate.Struct(mr)
}

func (api *paymentApi) markPaid(ctx echo.Context) error {
	var data MarkPaidRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkPaidRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.MarkPaid(ctx.Request().Context(), ctx.Param("id"), data.ReferenceNo, data.Method)
	switch errors.Cause(err) {
	case nil:
	case payment.ErrNotFound:
		return errHttpNotFound
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "marking payment paid")
	}

	api.sendReceipt(ctx, pmt)
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) markFailed(ctx echo.Context) error {
	pmt, err := api.svc.MarkFailed(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, pmt)
	case payment.ErrNotFound:
		return errHttpNotFound
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "marking payment failed")
	}
}

func (api *paymentApi) cancel(ctx echo.Context) error {
	pmt, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, pmt)
	case payment.ErrNotFound:
		return errHttpNotFound
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "cancelling payment")
	}
}

// Portal handlers

// contextTenant resolves the caller's active tenancy from their JWT subject.
func (api *paymentApi) contextTenant(ctx echo.Context) (tenant.Tenant, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "getting context claims")
	}
	t, err := api.tenantSvc.GetByProfileID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return tenant.Tenant{}, errHttpNotFound
		}
		return tenant.Tenant{}, errors.Wrap(err, "finding tenancy by profile ID")
	}
	return t, nil
}

func (api *paymentApi) portalMe(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *paymentApi) portalBilling(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}
	tenancy, charge, err := api.tenantSvc.Billing(ctx.Request().Context(), t.ID)
	if err != nil {
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

func (api *paymentApi) portalPayments(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}

	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	filter.TenantID = t.ID // callers only ever see their own payments
	filter.RoomID = ""

	payments, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			return vErr
		}
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) portalCreateAdvance(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}

	pmt, err := api.tenantSvc.CreateAdvance(ctx.Request().Context(), t.ID)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusCreated, pmt)
	case tenant.ErrNotActive, payment.ErrPaymentPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "creating advance payment")
	}
}

// portalPayment loads the payment addressed by the route and checks it
// belongs to the caller's tenancy.
func (api *paymentApi) portalPayment(ctx echo.Context, t tenant.Tenant) (payment.Payment, error) {
	pmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return payment.Payment{}, errHttpNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "finding payment by ID")
	}
	if pmt.TenantID != t.ID {
		return payment.Payment{}, errHttpNotFound
	}
	return pmt, nil
}

func (api *paymentApi) portalCheckout(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}
	pmt, err := api.portalPayment(ctx, t)
	if err != nil {
		return err
	}

	intent, err := api.svc.Checkout(ctx.Request().Context(), pmt.ID)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, intent)
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "starting checkout")
	}
}

func (api *paymentApi) portalConfirm(ctx echo.Context) error {
	t, err := api.contextTenant(ctx)
	if err != nil {
		return err
	}
	pmt, err := api.portalPayment(ctx, t)
	if err != nil {
		return err
	}

	var data payment.GatewayResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GatewayResult")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	pmt, err = api.svc.ConfirmGateway(ctx.Request().Context(), pmt.ID, data)
	switch errors.Cause(err) {
	case nil:
	case payment.ErrNotPending:
		return errHttpConflict
	default:
		return errors.Wrap(err, "confirming gateway payment")
	}

	if pmt.IsPaid() {
		api.sendReceipt(ctx, pmt)
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// sendReceipt emails the tenant their receipt; delivery problems never fail
// the request. Tenants without an email on record fall back to their portal
// account's address.
func (api *paymentApi) sendReceipt(ctx echo.Context, pmt payment.Payment) {
	t, err := api.tenantSvc.GetByID(ctx.Request().Context(), pmt.TenantID)
	if err != nil {
		return
	}

	email := t.Email
	if email == "" && t.ProfileID != "" {
		if usr, err := api.userSvc.GetByID(ctx.Request().Context(), t.ProfileID); err == nil {
			email = usr.Email
		}
	}
	if email == "" {
		return
	}
	api.svc.SendReceipt(pmt, mail.Address{Name: t.TenantName, Address: email}, t.TenantName)
}
