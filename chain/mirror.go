package chain

import (
	"context"
	"fmt"
	"time"
)

// Mirror wraps the raw contract with idempotent "ensure" semantics so the
// signing workflow never double-mints or double-signs. Every ensure method
// queries current on-chain state before attempting a write.
type Mirror struct {
	contract     Contract
	explorerBase string
}

// NewMirror builds a Mirror over the given contract. A nil contract yields
// an unconfigured mirror; callers must check IsConfigured before signing.
func NewMirror(contract Contract, explorerBase string) *Mirror {
	return &Mirror{contract: contract, explorerBase: explorerBase}
}

// IsConfigured reports whether chain-touching code paths may run. The mirror
// is mandatory once any signature is attempted, so an unconfigured mirror
// must reject signing rather than silently skip the chain.
func (m *Mirror) IsConfigured() bool {
	return m != nil && m.contract != nil
}

// MintResult reports the token backing an agreement and whether this call
// performed the mint.
type MintResult struct {
	TokenID int64
	Minted  bool
	Receipt Receipt
}

// EnsureMinted mints a token for the agreement unless one already exists.
// Safe to call on every signing request.
func (m *Mirror) EnsureMinted(ctx context.Context, agreementID string, beneficiaryIDs []string) (MintResult, error) {
	tokenID, exists, err := m.contract.AgreementToken(ctx, agreementID)
	if err != nil {
		return MintResult{}, fmt.Errorf("chain: query token: %w", err)
	}
	if exists {
		return MintResult{TokenID: tokenID}, nil
	}

	tokenID, receipt, err := m.contract.Mint(ctx, agreementID, beneficiaryIDs)
	if err != nil {
		return MintResult{}, fmt.Errorf("chain: mint: %w", err)
	}
	return MintResult{TokenID: tokenID, Minted: true, Receipt: receipt}, nil
}

// Data returns the on-chain snapshot for the token.
func (m *Mirror) Data(ctx context.Context, tokenID int64) (AgreementData, error) {
	return m.contract.AgreementData(ctx, tokenID)
}

// SignatureOutcome describes an ensure-signature call. Recorded is false
// when the chain already held the signature; SignedAt then carries the
// original on-chain timestamp and TxHash is empty.
type SignatureOutcome struct {
	TxHash   string
	SignedAt time.Time
	Recorded bool
}

// EnsureOwnerSigned records the owner signature unless the chain already has
// it, in which case the existing on-chain timestamp is reused.
func (m *Mirror) EnsureOwnerSigned(ctx context.Context, tokenID int64) (SignatureOutcome, error) {
	data, err := m.contract.AgreementData(ctx, tokenID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: query agreement data: %w", err)
	}
	if data.OwnerSigned {
		return SignatureOutcome{SignedAt: TimestampDate(data.OwnerSignedAt)}, nil
	}

	receipt, err := m.contract.RecordOwnerSignature(ctx, tokenID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: record owner signature: %w", err)
	}
	return SignatureOutcome{TxHash: receipt.TxHash, SignedAt: TimestampDate(receipt.Timestamp), Recorded: true}, nil
}

// EnsureBeneficiarySigned records the beneficiary signature with the same
// idempotent-skip behaviour as EnsureOwnerSigned.
func (m *Mirror) EnsureBeneficiarySigned(ctx context.Context, tokenID int64, beneficiaryID string) (SignatureOutcome, error) {
	sig, err := m.contract.BeneficiarySignature(ctx, tokenID, beneficiaryID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: query beneficiary signature: %w", err)
	}
	if sig.HasSigned {
		return SignatureOutcome{SignedAt: TimestampDate(sig.SignedAt)}, nil
	}

	receipt, err := m.contract.RecordBeneficiarySignature(ctx, tokenID, beneficiaryID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: record beneficiary signature: %w", err)
	}
	return SignatureOutcome{TxHash: receipt.TxHash, SignedAt: TimestampDate(receipt.Timestamp), Recorded: true}, nil
}

// EnsureWitnessSigned records the witness signature, reusing the on-chain
// timestamp when already witnessed. The on-chain time is authoritative for
// witnessedAt, not the server clock.
func (m *Mirror) EnsureWitnessSigned(ctx context.Context, tokenID int64, witnessID string) (SignatureOutcome, error) {
	data, err := m.contract.AgreementData(ctx, tokenID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: query agreement data: %w", err)
	}
	if data.WitnessSigned {
		return SignatureOutcome{SignedAt: TimestampDate(data.WitnessedAt)}, nil
	}

	receipt, err := m.contract.RecordWitnessSignature(ctx, tokenID, witnessID)
	if err != nil {
		return SignatureOutcome{}, fmt.Errorf("chain: record witness signature: %w", err)
	}
	return SignatureOutcome{TxHash: receipt.TxHash, SignedAt: TimestampDate(receipt.Timestamp), Recorded: true}, nil
}

// FullySigned checks owner + witness + every beneficiary on-chain.
func (m *Mirror) FullySigned(ctx context.Context, tokenID int64) (bool, error) {
	data, err := m.contract.AgreementData(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("chain: query agreement data: %w", err)
	}
	if !data.OwnerSigned || !data.WitnessSigned {
		return false, nil
	}
	for _, id := range data.BeneficiaryIDs {
		sig, err := m.contract.BeneficiarySignature(ctx, tokenID, id)
		if err != nil {
			return false, fmt.Errorf("chain: query beneficiary signature: %w", err)
		}
		if !sig.HasSigned {
			return false, nil
		}
	}
	return true, nil
}

// EnsureFinalized finalizes the agreement, swallowing only the benign
// already-finalized failure. Finalized is false when the chain had already
// finalized before this call.
func (m *Mirror) EnsureFinalized(ctx context.Context, tokenID int64) (Receipt, bool, error) {
	receipt, err := m.contract.Finalize(ctx, tokenID)
	if err != nil {
		if IsAlreadyFinalized(err) {
			return Receipt{}, false, nil
		}
		return Receipt{}, false, fmt.Errorf("chain: finalize: %w", err)
	}
	return receipt, true, nil
}

// ExplorerURL returns a block-explorer link for a transaction hash, or empty
// when no explorer is configured or the hash is empty.
func (m *Mirror) ExplorerURL(txHash string) string {
	if m == nil || m.explorerBase == "" || txHash == "" {
		return ""
	}
	return m.explorerBase + "/tx/" + txHash
}

// TimestampDate converts an on-chain unix-seconds timestamp to UTC time.
// A zero timestamp maps to the zero time.
func TimestampDate(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
