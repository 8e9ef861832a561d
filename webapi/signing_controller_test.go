package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateflow/agreement"
	"estateflow/auth"
)

// setupEchoContext creates a test Echo context carrying an authenticated
// principal, as the auth middleware would.
func setupEchoContext(method, target string, body []byte, p auth.Context) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(principalKey, p)

	return c, rec
}

type fakeSigner struct {
	ownerResult       agreement.OwnerSignResult
	beneficiaryResult agreement.BeneficiarySignResult
	witnessResult     agreement.WitnessSignResult
	err               error

	gotActor       auth.Context
	gotAgreementID string
	gotSubmit      bool
	gotDecision    agreement.BeneficiaryDecision
}

func (f *fakeSigner) OwnerSign(ctx context.Context, actor auth.Context, agreementID string, submit bool) (agreement.OwnerSignResult, error) {
	f.gotActor, f.gotAgreementID, f.gotSubmit = actor, agreementID, submit
	return f.ownerResult, f.err
}

func (f *fakeSigner) BeneficiarySign(ctx context.Context, actor auth.Context, agreementID string, decision agreement.BeneficiaryDecision) (agreement.BeneficiarySignResult, error) {
	f.gotActor, f.gotAgreementID, f.gotDecision = actor, agreementID, decision
	return f.beneficiaryResult, f.err
}

func (f *fakeSigner) WitnessSign(ctx context.Context, actor auth.Context, agreementID string) (agreement.WitnessSignResult, error) {
	f.gotActor, f.gotAgreementID = actor, agreementID
	return f.witnessResult, f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOwnerSignEndpoint(t *testing.T) {
	signedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := &fakeSigner{
		ownerResult: agreement.OwnerSignResult{
			Agreement: agreement.Agreement{
				ID:             "agr-1",
				Status:         agreement.StatusPendingSignatures,
				OwnerHasSigned: true,
				OwnerSignedAt:  &signedAt,
			},
			TokenID:              7,
			MintTxHash:           "0xmint",
			SignatureTxHash:      "0xsig",
			SignatureExplorerURL: "https://explorer/tx/0xsig",
		},
	}
	controller := NewSigningController(signer)

	actor := auth.Context{UserID: "owner-1", Role: auth.RoleMember}
	ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/owner", []byte(`{"submit":true}`), actor)
	ctx.SetParamNames("id")
	ctx.SetParamValues("agr-1")

	require.NoError(t, controller.OwnerSign(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, actor, signer.gotActor)
	assert.Equal(t, "agr-1", signer.gotAgreementID)
	assert.True(t, signer.gotSubmit)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	ag := body["agreement"].(map[string]any)
	assert.Equal(t, "pending_signatures", ag["status"])
	assert.Equal(t, true, ag["ownerHasSigned"])
	onChain := body["onChain"].(map[string]any)
	assert.Equal(t, float64(7), onChain["tokenId"])
	assert.Equal(t, "0xsig", onChain["ownerSignatureTxHash"])
}

func TestOwnerSignEndpoint_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unauthorized", agreement.Errorf(agreement.KindUnauthorized, "only the agreement owner may sign"), http.StatusUnauthorized},
		{"already signed", agreement.Errorf(agreement.KindAlreadySigned, "owner has already signed"), http.StatusBadRequest},
		{"invalid state", agreement.Errorf(agreement.KindInvalidState, "agreement in status active"), http.StatusBadRequest},
		{"validation", agreement.Errorf(agreement.KindValidationFailed, "share percentages must total 100"), http.StatusBadRequest},
		{"not found", agreement.Errorf(agreement.KindNotFound, "not found"), http.StatusNotFound},
		{"not configured", agreement.Errorf(agreement.KindNotConfigured, "signature ledger is not configured"), http.StatusServiceUnavailable},
		{"chain failure", agreement.Errorf(agreement.KindOnChainFailure, "on-chain operation failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			controller := NewSigningController(&fakeSigner{err: tc.err})
			ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/owner", []byte(`{}`),
				auth.Context{UserID: "user-1"})
			ctx.SetParamNames("id")
			ctx.SetParamValues("agr-1")

			require.NoError(t, controller.OwnerSign(ctx))
			assert.Equal(t, tc.code, rec.Code)

			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBeneficiarySignEndpoint_Accept(t *testing.T) {
	signedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	accepted := true
	signer := &fakeSigner{
		beneficiaryResult: agreement.BeneficiarySignResult{
			Beneficiary: agreement.Beneficiary{
				ID:         "ben-1",
				HasSigned:  true,
				SignedAt:   &signedAt,
				IsAccepted: &accepted,
			},
			AgreementStatus: agreement.StatusPendingWitness,
			OnChain: &agreement.BeneficiaryOnChain{
				TokenID:         7,
				SignatureTxHash: "0xbsig",
			},
		},
	}
	controller := NewSigningController(signer)

	ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/beneficiary",
		[]byte(`{"beneficiaryId":"ben-1"}`), auth.Context{UserID: "signer-1"})
	ctx.SetParamNames("id")
	ctx.SetParamValues("agr-1")

	require.NoError(t, controller.BeneficiarySign(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Absent accept defaults to acceptance.
	assert.True(t, signer.gotDecision.Accept)
	assert.Equal(t, "ben-1", signer.gotDecision.BeneficiaryID)

	body := decodeBody(t, rec)
	assert.Equal(t, "pending_witness", body["agreementStatus"])
	ben := body["beneficiary"].(map[string]any)
	assert.Equal(t, true, ben["hasSigned"])
	onChain := body["onChain"].(map[string]any)
	assert.Equal(t, "0xbsig", onChain["signatureTxHash"])
}

func TestBeneficiarySignEndpoint_Reject(t *testing.T) {
	rejected := false
	reason := "share is unfair"
	signer := &fakeSigner{
		beneficiaryResult: agreement.BeneficiarySignResult{
			Beneficiary: agreement.Beneficiary{
				ID:              "ben-1",
				IsAccepted:      &rejected,
				RejectionReason: &reason,
			},
			AgreementStatus: agreement.StatusPendingSignatures,
		},
	}
	controller := NewSigningController(signer)

	ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/beneficiary",
		[]byte(`{"beneficiaryId":"ben-1","accept":false,"rejectionReason":"share is unfair"}`),
		auth.Context{UserID: "signer-1"})
	ctx.SetParamNames("id")
	ctx.SetParamValues("agr-1")

	require.NoError(t, controller.BeneficiarySign(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, signer.gotDecision.Accept)
	assert.Equal(t, "share is unfair", signer.gotDecision.RejectionReason)

	body := decodeBody(t, rec)
	assert.Equal(t, "pending_signatures", body["agreementStatus"])
	assert.Nil(t, body["onChain"])
}

func TestWitnessSignEndpoint(t *testing.T) {
	witnessedAt := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
	witnessID := "admin-1"
	signer := &fakeSigner{
		witnessResult: agreement.WitnessSignResult{
			Agreement: agreement.Agreement{
				ID:          "agr-1",
				Status:      agreement.StatusActive,
				WitnessID:   &witnessID,
				WitnessedAt: &witnessedAt,
			},
			TokenID:        7,
			WitnessTxHash:  "0xwsig",
			FinalizeTxHash: "0xfin",
		},
	}
	controller := NewSigningController(signer)

	ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/witness", nil,
		auth.Context{UserID: "admin-1", Role: auth.RoleAdmin})
	ctx.SetParamNames("id")
	ctx.SetParamValues("agr-1")

	require.NoError(t, controller.WitnessSign(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	ag := body["agreement"].(map[string]any)
	assert.Equal(t, "active", ag["status"])
	assert.Equal(t, "admin-1", ag["witnessId"])
	onChain := body["onChain"].(map[string]any)
	assert.Equal(t, "0xwsig", onChain["witnessSignatureTxHash"])
	assert.Equal(t, "0xfin", onChain["finalizeTxHash"])
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	ctx, rec := setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/witness", nil,
		auth.Context{UserID: "user-1", Role: auth.RoleMember})
	require.NoError(t, handler(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ctx, rec = setupEchoContext(http.MethodPost, "/api/agreement/agr-1/sign/witness", nil,
		auth.Context{UserID: "admin-1", Role: auth.RoleAdmin})
	require.NoError(t, handler(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	verifier := fakeVerifier{principal: auth.Context{UserID: "user-1", Role: auth.RoleMember}}
	mw := AuthMiddleware(verifier)
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"userId": principal(c).UserID})
	})

	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/agreement", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good-token")
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")

	req = httptest.NewRequest(http.MethodGet, "/api/agreement", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/agreement", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer bad-token")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeVerifier struct {
	principal auth.Context
}

func (f fakeVerifier) VerifyToken(_ context.Context, token string) (auth.Context, error) {
	if token != "good-token" {
		return auth.Context{}, auth.ErrInvalidCredentials
	}
	return f.principal, nil
}
