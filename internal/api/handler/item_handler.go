package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

// ItemPropertiesHandler serves GET /v1/items/:id/properties.
type ItemPropertiesHandler struct {
	items      ports.CRUDService[domain.Item, int64]
	properties ports.CRUDService[domain.Property, uuid.UUID]
}

func NewItemPropertiesHandler(
	items ports.CRUDService[domain.Item, int64],
	properties ports.CRUDService[domain.Property, uuid.UUID],
) *ItemPropertiesHandler {
	return &ItemPropertiesHandler{items: items, properties: properties}
}

// List returns the properties owned by an item, 404 if the item is unknown.
//
// @Summary      List the properties of an item
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Item id"
// @Success      200  {array}   domain.Property
// @Failure      404  {object}  map[string]string
// @Router       /v1/items/{id}/properties [get]
func (h *ItemPropertiesHandler) List(c echo.Context) error {
	id, err := Int64Key(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()

	item, err := h.items.Read(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrEntityNotFound
	}

	props, err := h.properties.FindBy(ctx, "owner_id", id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, props)
}
