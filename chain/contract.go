package chain

import "context"

// Receipt is returned by every contract write.
type Receipt struct {
	TxHash    string
	Timestamp int64
}

// AgreementData is a read-only snapshot of an agreement token.
type AgreementData struct {
	OwnerSigned    bool
	OwnerSignedAt  int64
	WitnessSigned  bool
	WitnessedAt    int64
	Finalized      bool
	BeneficiaryIDs []string
}

// BeneficiarySignature reports the on-chain signature state for a single
// beneficiary.
type BeneficiarySignature struct {
	HasSigned bool
	SignedAt  int64
}

// Contract is the external signature-ledger collaborator. Writes are
// one-time at the contract level; callers must query current state first and
// skip the write when already recorded.
type Contract interface {
	// AgreementToken resolves the token minted for an agreement, if any.
	AgreementToken(ctx context.Context, agreementID string) (tokenID int64, exists bool, err error)

	// Mint creates the token representing the agreement. Minting twice for
	// the same agreement is a contract-level failure.
	Mint(ctx context.Context, agreementID string, beneficiaryIDs []string) (tokenID int64, receipt Receipt, err error)

	AgreementData(ctx context.Context, tokenID int64) (AgreementData, error)
	BeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (BeneficiarySignature, error)

	RecordOwnerSignature(ctx context.Context, tokenID int64) (Receipt, error)
	RecordBeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (Receipt, error)
	RecordWitnessSignature(ctx context.Context, tokenID int64, witnessID string) (Receipt, error)

	// Finalize marks the agreement fully signed on-chain. Finalizing twice
	// yields an error with CodeAlreadyFinalized.
	Finalize(ctx context.Context, tokenID int64) (Receipt, error)
}
