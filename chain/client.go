package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// GatewayClient implements Contract against the contract gateway's REST API.
// The gateway holds the signing key and relays calls to the deployed
// agreement-ledger contract.
type GatewayClient struct {
	c *resty.Client
}

// NewGatewayClient builds a client for the gateway at baseURL. The apiKey is
// sent as a bearer token on every request.
func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")
	return &GatewayClient{c: c}
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type receiptResponse struct {
	TxHash    string `json:"tx_hash"`
	Timestamp int64  `json:"timestamp"`
}

func toError(resp *resty.Response) error {
	var gw gatewayError
	if err := json.Unmarshal(resp.Body(), &gw); err != nil {
		return &ContractError{
			Code:    CodeProvider,
			Message: fmt.Sprintf("(HTTP Status: %d) unable to parse gateway error response", resp.StatusCode()),
		}
	}
	return &ContractError{Code: classify(gw.Code, gw.Message), Message: gw.Message}
}

func (g *GatewayClient) AgreementToken(ctx context.Context, agreementID string) (int64, bool, error) {
	var body struct {
		TokenID int64 `json:"token_id"`
		Exists  bool  `json:"exists"`
	}
	resp, err := g.c.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("agreement_id", agreementID).
		Get("/agreements/{agreement_id}/token")
	if err != nil {
		return 0, false, &ContractError{Code: CodeProvider, Message: err.Error()}
	}
	if resp.IsError() {
		return 0, false, toError(resp)
	}
	return body.TokenID, body.Exists, nil
}

func (g *GatewayClient) Mint(ctx context.Context, agreementID string, beneficiaryIDs []string) (int64, Receipt, error) {
	var body struct {
		TokenID int64 `json:"token_id"`
		receiptResponse
	}
	resp, err := g.c.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"agreement_id":    agreementID,
			"beneficiary_ids": beneficiaryIDs,
		}).
		SetResult(&body).
		Post("/agreements/mint")
	if err != nil {
		return 0, Receipt{}, &ContractError{Code: CodeProvider, Message: err.Error()}
	}
	if resp.IsError() {
		return 0, Receipt{}, toError(resp)
	}
	return body.TokenID, Receipt{TxHash: body.TxHash, Timestamp: body.Timestamp}, nil
}

func (g *GatewayClient) AgreementData(ctx context.Context, tokenID int64) (AgreementData, error) {
	var body struct {
		OwnerSigned    bool     `json:"owner_signed"`
		OwnerSignedAt  int64    `json:"owner_signed_at"`
		WitnessSigned  bool     `json:"witness_signed"`
		WitnessedAt    int64    `json:"witnessed_at"`
		Finalized      bool     `json:"finalized"`
		BeneficiaryIDs []string `json:"beneficiary_ids"`
	}
	resp, err := g.c.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("token_id", fmt.Sprintf("%d", tokenID)).
		Get("/tokens/{token_id}")
	if err != nil {
		return AgreementData{}, &ContractError{Code: CodeProvider, Message: err.Error()}
	}
	if resp.IsError() {
		return AgreementData{}, toError(resp)
	}
	return AgreementData{
		OwnerSigned:    body.OwnerSigned,
		OwnerSignedAt:  body.OwnerSignedAt,
		WitnessSigned:  body.WitnessSigned,
		WitnessedAt:    body.WitnessedAt,
		Finalized:      body.Finalized,
		BeneficiaryIDs: body.BeneficiaryIDs,
	}, nil
}

func (g *GatewayClient) BeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (BeneficiarySignature, error) {
	var body struct {
		HasSigned bool  `json:"has_signed"`
		SignedAt  int64 `json:"signed_at"`
	}
	resp, err := g.c.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("token_id", fmt.Sprintf("%d", tokenID)).
		SetPathParam("beneficiary_id", beneficiaryID).
		Get("/tokens/{token_id}/beneficiaries/{beneficiary_id}")
	if err != nil {
		return BeneficiarySignature{}, &ContractError{Code: CodeProvider, Message: err.Error()}
	}
	if resp.IsError() {
		return BeneficiarySignature{}, toError(resp)
	}
	return BeneficiarySignature{HasSigned: body.HasSigned, SignedAt: body.SignedAt}, nil
}

func (g *GatewayClient) RecordOwnerSignature(ctx context.Context, tokenID int64) (Receipt, error) {
	return g.postReceipt(ctx, fmt.Sprintf("/tokens/%d/sign/owner", tokenID), nil)
}

func (g *GatewayClient) RecordBeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (Receipt, error) {
	return g.postReceipt(ctx, fmt.Sprintf("/tokens/%d/sign/beneficiary", tokenID), map[string]any{
		"beneficiary_id": beneficiaryID,
	})
}

func (g *GatewayClient) RecordWitnessSignature(ctx context.Context, tokenID int64, witnessID string) (Receipt, error) {
	return g.postReceipt(ctx, fmt.Sprintf("/tokens/%d/sign/witness", tokenID), map[string]any{
		"witness_id": witnessID,
	})
}

func (g *GatewayClient) Finalize(ctx context.Context, tokenID int64) (Receipt, error) {
	return g.postReceipt(ctx, fmt.Sprintf("/tokens/%d/finalize", tokenID), nil)
}

func (g *GatewayClient) postReceipt(ctx context.Context, path string, payload map[string]any) (Receipt, error) {
	var body receiptResponse
	req := g.c.R().SetContext(ctx).SetResult(&body)
	if payload != nil {
		req.SetBody(payload)
	}
	resp, err := req.Post(path)
	if err != nil {
		return Receipt{}, &ContractError{Code: CodeProvider, Message: err.Error()}
	}
	if resp.IsError() {
		return Receipt{}, toError(resp)
	}
	return Receipt{TxHash: body.TxHash, Timestamp: body.Timestamp}, nil
}
