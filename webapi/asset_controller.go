package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"estateflow/agreement"
	"estateflow/asset"
)

// AssetController exposes the asset registry endpoints.
type AssetController struct {
	svc *asset.Service
}

func NewAssetController(svc *asset.Service) *AssetController {
	return &AssetController{svc: svc}
}

func (ct *AssetController) Register(c echo.Context) error {
	var req struct {
		Name           string  `json:"name"`
		Category       string  `json:"category"`
		EstimatedValue float64 `json:"estimatedValue"`
		Description    *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	a, err := ct.svc.Register(c.Request().Context(), principal(c).UserID, asset.CreateParams{
		Name:           req.Name,
		Category:       req.Category,
		EstimatedValue: req.EstimatedValue,
		Description:    req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toAssetResponse(a))
}

func (ct *AssetController) Get(c echo.Context) error {
	a, err := ct.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	p := principal(c)
	if !p.IsAdmin() && a.OwnerID != p.UserID {
		return respondError(c, agreement.Errorf(agreement.KindUnauthorized, "not the asset owner"))
	}
	return c.JSON(http.StatusOK, toAssetResponse(a))
}

func (ct *AssetController) List(c echo.Context) error {
	assets, err := ct.svc.ListByOwner(c.Request().Context(), principal(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]map[string]any, 0, len(assets))
	for _, a := range assets {
		items = append(items, toAssetResponse(a))
	}
	return c.JSON(http.StatusOK, map[string]any{"assets": items})
}

func toAssetResponse(a asset.Asset) map[string]any {
	return map[string]any{
		"id":             a.ID,
		"name":           a.Name,
		"category":       a.Category,
		"estimatedValue": a.EstimatedValue,
		"description":    a.Description,
		"createdAt":      a.CreatedAt,
	}
}
