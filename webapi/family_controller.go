package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"estateflow/family"
)

// FamilyController exposes the family registry endpoints.
type FamilyController struct {
	svc *family.Service
}

func NewFamilyController(svc *family.Service) *FamilyController {
	return &FamilyController{svc: svc}
}

func (ct *FamilyController) AddMember(c echo.Context) error {
	var req struct {
		RelatedUserID string `json:"relatedUserId"`
		Relationship  string `json:"relationship"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	member, err := ct.svc.AddMember(c.Request().Context(), principal(c).UserID, family.CreateMemberParams{
		RelatedUserID: req.RelatedUserID,
		Relationship:  req.Relationship,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toMemberResponse(member))
}

func (ct *FamilyController) AddNonRegistered(c echo.Context) error {
	var req struct {
		FullName     string  `json:"fullName"`
		Relationship string  `json:"relationship"`
		Email        *string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	member, err := ct.svc.AddNonRegistered(c.Request().Context(), principal(c).UserID, family.CreateNonRegisteredParams{
		FullName:     req.FullName,
		Relationship: req.Relationship,
		Email:        req.Email,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toNonRegisteredResponse(member))
}

func (ct *FamilyController) List(c echo.Context) error {
	userID := principal(c).UserID

	members, err := ct.svc.ListMembers(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	nonRegistered, err := ct.svc.ListNonRegistered(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	memberItems := make([]map[string]any, 0, len(members))
	for _, m := range members {
		memberItems = append(memberItems, toMemberResponse(m))
	}
	nonRegisteredItems := make([]map[string]any, 0, len(nonRegistered))
	for _, m := range nonRegistered {
		nonRegisteredItems = append(nonRegisteredItems, toNonRegisteredResponse(m))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"members":       memberItems,
		"nonRegistered": nonRegisteredItems,
	})
}

func toMemberResponse(m family.Member) map[string]any {
	return map[string]any{
		"id":            m.ID,
		"relatedUserId": m.RelatedUserID,
		"relationship":  m.Relationship,
		"createdAt":     m.CreatedAt,
	}
}

func toNonRegisteredResponse(m family.NonRegisteredMember) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"fullName":     m.FullName,
		"relationship": m.Relationship,
		"email":        m.Email,
		"createdAt":    m.CreatedAt,
	}
}
