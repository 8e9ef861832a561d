package webapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"estateflow/agreement"
)

// AgreementController exposes the draft lifecycle endpoints: create, read,
// list. Signing lives on its own controller.
type AgreementController struct {
	crud *agreement.CRUDService
}

func NewAgreementController(crud *agreement.CRUDService) *AgreementController {
	return &AgreementController{crud: crud}
}

type beneficiaryRequest struct {
	FamilyMemberID        string  `json:"familyMemberId"`
	NonRegisteredMemberID string  `json:"nonRegisteredMemberId"`
	SharePercentage       float64 `json:"sharePercentage"`
	ShareDescription      string  `json:"shareDescription"`
}

type allocationRequest struct {
	AssetID             string   `json:"assetId"`
	AllocatedValue      *float64 `json:"allocatedValue"`
	AllocatedPercentage *float64 `json:"allocatedPercentage"`
	Notes               string   `json:"notes"`
}

type createAgreementRequest struct {
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	DistributionType string               `json:"distributionType"`
	EffectiveDate    *time.Time           `json:"effectiveDate"`
	ExpiryDate       *time.Time           `json:"expiryDate"`
	Beneficiaries    []beneficiaryRequest `json:"beneficiaries"`
	Assets           []allocationRequest  `json:"assets"`
}

func (ct *AgreementController) Create(c echo.Context) error {
	var req createAgreementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	params := agreement.CreateParams{
		Title:            req.Title,
		Description:      req.Description,
		DistributionType: agreement.DistributionType(req.DistributionType),
		EffectiveDate:    req.EffectiveDate,
		ExpiryDate:       req.ExpiryDate,
	}
	for _, b := range req.Beneficiaries {
		var (
			ref agreement.BeneficiaryRef
			err error
		)
		switch {
		case b.FamilyMemberID != "":
			ref, err = agreement.RegisteredRef(b.FamilyMemberID)
		case b.NonRegisteredMemberID != "":
			ref, err = agreement.NonRegisteredRef(b.NonRegisteredMemberID)
		default:
			return c.JSON(http.StatusBadRequest, errorBody{
				Error: "beneficiary must reference a family member or a non-registered member",
			})
		}
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		}
		params.Beneficiaries = append(params.Beneficiaries, agreement.BeneficiaryInput{
			Ref:              ref,
			SharePercentage:  b.SharePercentage,
			ShareDescription: b.ShareDescription,
		})
	}
	for _, a := range req.Assets {
		params.Assets = append(params.Assets, agreement.AssetAllocationInput{
			AssetID:             a.AssetID,
			AllocatedValue:      a.AllocatedValue,
			AllocatedPercentage: a.AllocatedPercentage,
			Notes:               a.Notes,
		})
	}

	view, err := ct.crud.Create(c.Request().Context(), principal(c).UserID, params)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toAgreementView(view))
}

func (ct *AgreementController) Get(c echo.Context) error {
	view, err := ct.crud.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	// Owners, beneficiary signers, and admins may read an agreement.
	p := principal(c)
	if !p.IsAdmin() && view.Agreement.OwnerID != p.UserID && !isBeneficiarySigner(view, p.UserID) {
		return respondError(c, agreement.Errorf(agreement.KindUnauthorized, "not a participant of this agreement"))
	}
	return c.JSON(http.StatusOK, toAgreementView(view))
}

func (ct *AgreementController) List(c echo.Context) error {
	page, _ := intQuery(c, "page")
	pageSize, _ := intQuery(c, "pageSize")

	agreements, total, err := ct.crud.ListByOwner(c.Request().Context(), principal(c).UserID, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}

	items := make([]map[string]any, 0, len(agreements))
	for _, ag := range agreements {
		items = append(items, toAgreementSummary(ag))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"agreements": items,
		"total":      total,
	})
}

func isBeneficiarySigner(view agreement.View, userID string) bool {
	for _, b := range view.Beneficiaries {
		if b.SignerUserID != nil && *b.SignerUserID == userID {
			return true
		}
	}
	return false
}

func intQuery(c echo.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0, false
	}
	return n, true
}

func toAgreementSummary(ag agreement.Agreement) map[string]any {
	return map[string]any{
		"id":               ag.ID,
		"title":            ag.Title,
		"description":      ag.Description,
		"distributionType": ag.DistributionType,
		"status":           ag.Status,
		"ownerId":          ag.OwnerID,
		"effectiveDate":    ag.EffectiveDate,
		"expiryDate":       ag.ExpiryDate,
		"tokenId":          ag.TokenID,
		"ownerHasSigned":   ag.OwnerHasSigned,
		"ownerSignedAt":    ag.OwnerSignedAt,
		"witnessId":        ag.WitnessID,
		"witnessedAt":      ag.WitnessedAt,
		"createdAt":        ag.CreatedAt,
	}
}

func toAgreementView(view agreement.View) map[string]any {
	beneficiaries := make([]map[string]any, 0, len(view.Beneficiaries))
	for _, b := range view.Beneficiaries {
		familyMemberID, nonRegisteredID := b.Ref.Columns()
		beneficiaries = append(beneficiaries, map[string]any{
			"id":                    b.ID,
			"familyMemberId":        familyMemberID,
			"nonRegisteredMemberId": nonRegisteredID,
			"sharePercentage":       b.SharePercentage,
			"shareDescription":      b.ShareDescription,
			"hasSigned":             b.HasSigned,
			"signedAt":              b.SignedAt,
			"isAccepted":            b.IsAccepted,
			"rejectionReason":       b.RejectionReason,
		})
	}

	assets := make([]map[string]any, 0, len(view.Assets))
	for _, a := range view.Assets {
		assets = append(assets, map[string]any{
			"id":                  a.ID,
			"assetId":             a.AssetID,
			"allocatedValue":      a.AllocatedValue,
			"allocatedPercentage": a.AllocatedPercentage,
			"notes":               a.Notes,
		})
	}

	out := toAgreementSummary(view.Agreement)
	out["beneficiaries"] = beneficiaries
	out["assets"] = assets
	return out
}
