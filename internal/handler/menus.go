package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// MenuHandler exposes the menu catalog.
type MenuHandler struct {
	Menu *service.MenuCatalog
}

func NewMenuHandler(s *service.Session) *MenuHandler {
	if s == nil || s.Menu == nil {
		panic("nil dependency passed to NewMenuHandler")
	}
	return &MenuHandler{Menu: s.Menu}
}

type createMenuReq struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

type patchMenuReq struct {
	Available *bool `json:"available"`
}

// List returns the catalog; ?available=true limits it to orderable items.
func (h *MenuHandler) List(c echo.Context) error {
	if c.QueryParam("available") == "true" {
		return c.JSON(http.StatusOK, echo.Map{"menus": h.Menu.GetAvailable()})
	}
	return c.JSON(http.StatusOK, echo.Map{"menus": h.Menu.All()})
}

// Create adds an item at the end of the catalog.
func (h *MenuHandler) Create(c echo.Context) error {
	var req createMenuReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, res, err := h.Menu.Add(ctx, req.Name, req.Price, req.Category)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"menu": item, "storage": storage(res)})
}

// Update toggles availability.
func (h *MenuHandler) Update(c echo.Context) error {
	var req patchMenuReq
	if err := c.Bind(&req); err != nil || req.Available == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "available required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, res, err := h.Menu.SetAvailable(ctx, c.Param("id"), *req.Available)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"menu": item, "storage": storage(res)})
}
