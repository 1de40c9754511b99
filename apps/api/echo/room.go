package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/room"
)

type roomApi struct {
	svc      *room.Service
	validate *validator.Validate
}

func registerRoomAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *room.Service, validate *validator.Validate) {
	api := roomApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/rooms", jwt, adminMiddleware())
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
	rg.GET("/:id/occupancy", api.occupancy)
}

func (api *roomApi) create(ctx echo.Context) error {
	var data room.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rm, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			return vErr
		}
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, rm)
}

func (api *roomApi) query(ctx echo.Context) error {
	filter := new(room.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []room.Room{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rooms, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *roomApi) retrieve(ctx echo.Context) error {
	rm, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == room.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding room by ID")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == room.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding room by ID")
	}

	var data room.UpdateRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoom")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	rm, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			return vErr
		}
		return errors.Wrap(err, "updating room")
	}
	return ctx.JSON(http.StatusOK, rm)
}

func (api *roomApi) destroy(ctx echo.Context) error {
	err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
		return ctx.NoContent(http.StatusNoContent)
	case room.ErrNotFound:
		return errHttpNotFound
	case room.ErrHasActiveTenants:
		return errHttpConflict
	default:
		return errors.Wrap(err, "deleting room")
	}
}

type OccupancyResponse struct {
	RoomID        string `json:"room_id"`
	Capacity      int    `json:"capacity"`
	ActiveTenants int    `json:"active_tenants"`
	Status        string `json:"status"`
}

func (api *roomApi) occupancy(ctx echo.Context) error {
	rm, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == room.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding room by ID")
	}
	count, err := api.svc.Occupancy(ctx.Request().Context(), rm.ID)
	if err != nil {
		return errors.Wrap(err, "counting active tenants")
	}
	return ctx.JSON(http.StatusOK, OccupancyResponse{
		RoomID:        rm.ID,
		Capacity:      rm.Capacity,
		ActiveTenants: count,
		Status:        rm.Status,
	})
}
