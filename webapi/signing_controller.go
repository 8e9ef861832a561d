package webapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"estateflow/agreement"
	"estateflow/auth"
)

// Signer is the signing workflow surface the controller depends on.
type Signer interface {
	OwnerSign(ctx context.Context, actor auth.Context, agreementID string, submit bool) (agreement.OwnerSignResult, error)
	BeneficiarySign(ctx context.Context, actor auth.Context, agreementID string, decision agreement.BeneficiaryDecision) (agreement.BeneficiarySignResult, error)
	WitnessSign(ctx context.Context, actor auth.Context, agreementID string) (agreement.WitnessSignResult, error)
}

// SigningController exposes the three signing endpoints.
type SigningController struct {
	signer Signer
}

func NewSigningController(signer Signer) *SigningController {
	return &SigningController{signer: signer}
}

func (ct *SigningController) OwnerSign(c echo.Context) error {
	var req struct {
		Submit bool `json:"submit"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	res, err := ct.signer.OwnerSign(c.Request().Context(), principal(c), c.Param("id"), req.Submit)
	if err != nil {
		return respondError(c, err)
	}

	message := "agreement signed"
	if res.Agreement.Status == agreement.StatusPendingSignatures {
		message = "agreement signed and submitted to beneficiaries"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"agreement": map[string]any{
			"id":             res.Agreement.ID,
			"status":         res.Agreement.Status,
			"ownerHasSigned": res.Agreement.OwnerHasSigned,
			"ownerSignedAt":  res.Agreement.OwnerSignedAt,
		},
		"onChain": map[string]any{
			"tokenId":                   res.TokenID,
			"ownerSignatureTxHash":      res.SignatureTxHash,
			"ownerSignatureExplorerUrl": res.SignatureExplorerURL,
			"mintTxHash":                res.MintTxHash,
			"mintExplorerUrl":           res.MintExplorerURL,
		},
	})
}

func (ct *SigningController) BeneficiarySign(c echo.Context) error {
	var req struct {
		BeneficiaryID   string `json:"beneficiaryId"`
		Accept          *bool  `json:"accept"`
		RejectionReason string `json:"rejectionReason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}

	// Absent accept means acceptance; only an explicit false rejects.
	accept := req.Accept == nil || *req.Accept

	res, err := ct.signer.BeneficiarySign(c.Request().Context(), principal(c), c.Param("id"), agreement.BeneficiaryDecision{
		BeneficiaryID:   req.BeneficiaryID,
		Accept:          accept,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		return respondError(c, err)
	}

	var onChain any
	if res.OnChain != nil {
		onChain = map[string]any{
			"tokenId":              res.OnChain.TokenID,
			"signatureTxHash":      res.OnChain.SignatureTxHash,
			"signatureExplorerUrl": res.OnChain.SignatureExplorerURL,
			"mintTxHash":           res.OnChain.MintTxHash,
			"mintExplorerUrl":      res.OnChain.MintExplorerURL,
		}
	}

	message := "agreement rejected"
	if accept {
		message = "agreement accepted"
		if res.AgreementStatus == agreement.StatusPendingWitness {
			message = "agreement accepted; all beneficiaries signed, awaiting witness"
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"beneficiary": map[string]any{
			"id":         res.Beneficiary.ID,
			"hasSigned":  res.Beneficiary.HasSigned,
			"signedAt":   res.Beneficiary.SignedAt,
			"isAccepted": res.Beneficiary.IsAccepted,
		},
		"agreementStatus": res.AgreementStatus,
		"onChain":         onChain,
	})
}

func (ct *SigningController) WitnessSign(c echo.Context) error {
	res, err := ct.signer.WitnessSign(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "agreement witnessed and activated",
		"agreement": map[string]any{
			"id":          res.Agreement.ID,
			"status":      res.Agreement.Status,
			"witnessId":   res.Agreement.WitnessID,
			"witnessedAt": res.Agreement.WitnessedAt,
		},
		"onChain": map[string]any{
			"tokenId":                     res.TokenID,
			"witnessSignatureTxHash":      res.WitnessTxHash,
			"witnessSignatureExplorerUrl": res.WitnessExplorerURL,
			"finalizeTxHash":              res.FinalizeTxHash,
			"finalizeExplorerUrl":         res.FinalizeExplorerURL,
			"mintTxHash":                  res.MintTxHash,
			"mintExplorerUrl":             res.MintExplorerURL,
		},
	})
}
