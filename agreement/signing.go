package agreement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"estateflow/auth"
	"estateflow/chain"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SigningService orchestrates owner, beneficiary, and witness signing
// against both the relational record and the on-chain mirror. Each operation
// runs in one transaction holding a row lock on the agreement, so concurrent
// signings on the same agreement serialize and the aggregate "all signed"
// check always sees fresh persisted state.
//
// Chain calls are single-shot and unretried; the idempotent-skip checks make
// client resubmission safe after any failure.
type SigningService struct {
	pool   TxBeginner
	store  Store
	mirror *chain.Mirror
}

// NewSigningService wires the state machine. A mirror over a nil contract
// makes every signing attempt fail with KindNotConfigured; the chain mirror
// is mandatory, not optional, once any signature is attempted.
func NewSigningService(pool TxBeginner, store Store, mirror *chain.Mirror) *SigningService {
	if store == nil {
		store = NewRepository()
	}
	return &SigningService{pool: pool, store: store, mirror: mirror}
}

// OwnerSignResult reports the relational and on-chain outcome of owner
// signing. Mint/Signature tx fields are empty when the chain already held
// the corresponding state.
type OwnerSignResult struct {
	Agreement            Agreement
	TokenID              int64
	MintTxHash           string
	MintExplorerURL      string
	SignatureTxHash      string
	SignatureExplorerURL string
}

// OwnerSign records the owner's signature. Signing and submitting are
// decoupled: status advances to PENDING_SIGNATURES only when submit is set,
// so an owner may sign without yet publishing to beneficiaries.
func (s *SigningService) OwnerSign(ctx context.Context, actor auth.Context, agreementID string, submit bool) (OwnerSignResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return OwnerSignResult{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ag, err := s.store.GetForUpdate(ctx, tx, agreementID)
	if err != nil {
		return OwnerSignResult{}, notFoundOr(err)
	}
	if ag.OwnerID != actor.UserID {
		return OwnerSignResult{}, Errorf(KindUnauthorized, "only the agreement owner may sign")
	}
	if ag.Status != StatusDraft && ag.Status != StatusPendingSignatures {
		return OwnerSignResult{}, Errorf(KindInvalidState, "agreement in status %s cannot be owner-signed", ag.Status)
	}
	if ag.OwnerHasSigned {
		return OwnerSignResult{}, Errorf(KindAlreadySigned, "owner has already signed")
	}

	beneficiaries, err := s.store.ListBeneficiaries(ctx, tx, agreementID)
	if err != nil {
		return OwnerSignResult{}, err
	}
	if len(beneficiaries) == 0 {
		return OwnerSignResult{}, Errorf(KindInvalidState, "agreement has no beneficiaries")
	}

	if !s.mirror.IsConfigured() {
		return OwnerSignResult{}, Errorf(KindNotConfigured, "signature ledger is not configured")
	}

	mint, err := s.mirror.EnsureMinted(ctx, agreementID, beneficiaryIDs(beneficiaries))
	if err != nil {
		return OwnerSignResult{}, onChainErr("mint agreement token", err)
	}
	if err := s.syncToken(ctx, tx, &ag, mint.TokenID); err != nil {
		return OwnerSignResult{}, err
	}

	sig, err := s.mirror.EnsureOwnerSigned(ctx, mint.TokenID)
	if err != nil {
		return OwnerSignResult{}, onChainErr("record owner signature", err)
	}

	if err := s.store.MarkOwnerSigned(ctx, tx, agreementID, sig.SignedAt, sig.TxHash); err != nil {
		return OwnerSignResult{}, err
	}
	ag.OwnerHasSigned = true
	signedAt := sig.SignedAt
	ag.OwnerSignedAt = &signedAt
	if sig.TxHash != "" {
		ref := sig.TxHash
		ag.OwnerSignatureRef = &ref
	}

	if err := s.store.AppendTimelineEvent(ctx, tx, agreementID, "OWNER_SIGNED", actor.UserID, map[string]any{
		"token_id":      mint.TokenID,
		"signature_ref": sig.TxHash,
		"signed_at":     sig.SignedAt,
	}); err != nil {
		return OwnerSignResult{}, err
	}
	if err := s.store.EnqueueOutbox(ctx, tx, OutboxTopicOwnerSigned, map[string]any{
		"agreement_id": agreementID,
		"owner_id":     actor.UserID,
	}); err != nil {
		return OwnerSignResult{}, err
	}

	if submit && ag.Status == StatusDraft {
		if err := s.store.SetStatus(ctx, tx, agreementID, StatusDraft, StatusPendingSignatures); err != nil {
			return OwnerSignResult{}, err
		}
		ag.Status = StatusPendingSignatures
		if err := s.store.AppendTimelineEvent(ctx, tx, agreementID, "AGREEMENT_SUBMITTED", actor.UserID, map[string]any{
			"beneficiary_count": len(beneficiaries),
		}); err != nil {
			return OwnerSignResult{}, err
		}
		if err := s.store.EnqueueOutbox(ctx, tx, OutboxTopicSubmitted, map[string]any{
			"agreement_id": agreementID,
		}); err != nil {
			return OwnerSignResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return OwnerSignResult{}, fmt.Errorf("agreement: commit owner sign: %w", err)
	}

	return OwnerSignResult{
		Agreement:            ag,
		TokenID:              mint.TokenID,
		MintTxHash:           mint.Receipt.TxHash,
		MintExplorerURL:      s.mirror.ExplorerURL(mint.Receipt.TxHash),
		SignatureTxHash:      sig.TxHash,
		SignatureExplorerURL: s.mirror.ExplorerURL(sig.TxHash),
	}, nil
}

// BeneficiaryDecision is a beneficiary's response to a published agreement.
type BeneficiaryDecision struct {
	BeneficiaryID   string
	Accept          bool
	RejectionReason string
}

// BeneficiaryOnChain carries the chain receipts for an accepted signature.
type BeneficiaryOnChain struct {
	TokenID              int64
	MintTxHash           string
	MintExplorerURL      string
	SignatureTxHash      string
	SignatureExplorerURL string
}

// BeneficiarySignResult reports the beneficiary row after the decision and
// the agreement status, which may have advanced to PENDING_WITNESS when this
// was the last outstanding signature. OnChain is nil on rejection.
type BeneficiarySignResult struct {
	Beneficiary     Beneficiary
	AgreementStatus Status
	OnChain         *BeneficiaryOnChain
}

// BeneficiarySign applies an accept or reject decision. Rejection touches
// only the relational record and permanently blocks automatic advancement;
// acceptance mirrors the signature on-chain, opportunistically backfilling
// the owner's signature if an earlier crash left the chain behind.
func (s *SigningService) BeneficiarySign(ctx context.Context, actor auth.Context, agreementID string, decision BeneficiaryDecision) (BeneficiarySignResult, error) {
	if decision.BeneficiaryID == "" {
		return BeneficiarySignResult{}, Errorf(KindValidationFailed, "beneficiary id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return BeneficiarySignResult{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ag, err := s.store.GetForUpdate(ctx, tx, agreementID)
	if err != nil {
		return BeneficiarySignResult{}, notFoundOr(err)
	}
	if ag.Status != StatusPendingSignatures {
		return BeneficiarySignResult{}, Errorf(KindInvalidState, "agreement in status %s is not accepting beneficiary signatures", ag.Status)
	}

	ben, err := s.store.GetBeneficiary(ctx, tx, decision.BeneficiaryID)
	if err != nil {
		return BeneficiarySignResult{}, notFoundOr(err)
	}
	if ben.AgreementID != agreementID {
		return BeneficiarySignResult{}, Errorf(KindNotFound, "beneficiary does not belong to agreement")
	}

	if err := authorizeBeneficiary(actor, ag, ben); err != nil {
		return BeneficiarySignResult{}, err
	}

	if ben.HasSigned {
		return BeneficiarySignResult{}, Errorf(KindAlreadySigned, "beneficiary has already signed")
	}
	if ben.Rejected() {
		return BeneficiarySignResult{}, Errorf(KindInvalidState, "beneficiary has already rejected")
	}

	if !decision.Accept {
		return s.rejectBeneficiary(ctx, tx, actor, ag, ben, decision.RejectionReason)
	}

	if !s.mirror.IsConfigured() {
		return BeneficiarySignResult{}, Errorf(KindNotConfigured, "signature ledger is not configured")
	}

	beneficiaries, err := s.store.ListBeneficiaries(ctx, tx, agreementID)
	if err != nil {
		return BeneficiarySignResult{}, err
	}

	mint, err := s.mirror.EnsureMinted(ctx, agreementID, beneficiaryIDs(beneficiaries))
	if err != nil {
		return BeneficiarySignResult{}, onChainErr("mint agreement token", err)
	}
	if err := s.syncToken(ctx, tx, &ag, mint.TokenID); err != nil {
		return BeneficiarySignResult{}, err
	}

	// Self-heal: a crash after the owner's local write but before the chain
	// write leaves the mirror behind. Catch it up before this signature.
	if err := s.backfillOwner(ctx, ag, mint.TokenID); err != nil {
		return BeneficiarySignResult{}, err
	}

	sig, err := s.mirror.EnsureBeneficiarySigned(ctx, mint.TokenID, ben.ID)
	if err != nil {
		return BeneficiarySignResult{}, onChainErr("record beneficiary signature", err)
	}

	if err := s.store.MarkBeneficiarySigned(ctx, tx, ben.ID, sig.SignedAt, sig.TxHash); err != nil {
		return BeneficiarySignResult{}, err
	}
	ben.HasSigned = true
	signedAt := sig.SignedAt
	ben.SignedAt = &signedAt
	accepted := true
	ben.IsAccepted = &accepted
	if sig.TxHash != "" {
		ref := sig.TxHash
		ben.SignatureRef = &ref
	}

	if err := s.store.AppendTimelineEvent(ctx, tx, agreementID, "BENEFICIARY_SIGNED", actor.UserID, map[string]any{
		"beneficiary_id": ben.ID,
		"signature_ref":  sig.TxHash,
		"signed_at":      sig.SignedAt,
	}); err != nil {
		return BeneficiarySignResult{}, err
	}
	if err := s.store.EnqueueOutbox(ctx, tx, OutboxTopicBeneficiarySigned, map[string]any{
		"agreement_id":   agreementID,
		"beneficiary_id": ben.ID,
	}); err != nil {
		return BeneficiarySignResult{}, err
	}

	// Aggregate check on freshly-read persisted state, under the row lock,
	// so two near-simultaneous signings cannot both miss the transition.
	beneficiaries, err = s.store.ListBeneficiaries(ctx, tx, agreementID)
	if err != nil {
		return BeneficiarySignResult{}, err
	}
	status := ag.Status
	if allResolved(beneficiaries) {
		if err := s.store.SetStatus(ctx, tx, agreementID, StatusPendingSignatures, StatusPendingWitness); err != nil {
			return BeneficiarySignResult{}, err
		}
		status = StatusPendingWitness
		if err := s.store.AppendTimelineEvent(ctx, tx, agreementID, "READY_FOR_WITNESS", actor.UserID, map[string]any{
			"beneficiary_count": len(beneficiaries),
		}); err != nil {
			return BeneficiarySignResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BeneficiarySignResult{}, fmt.Errorf("agreement: commit beneficiary sign: %w", err)
	}

	return BeneficiarySignResult{
		Beneficiary:     ben,
		AgreementStatus: status,
		OnChain: &BeneficiaryOnChain{
			TokenID:              mint.TokenID,
			MintTxHash:           mint.Receipt.TxHash,
			MintExplorerURL:      s.mirror.ExplorerURL(mint.Receipt.TxHash),
			SignatureTxHash:      sig.TxHash,
			SignatureExplorerURL: s.mirror.ExplorerURL(sig.TxHash),
		},
	}, nil
}

func (s *SigningService) rejectBeneficiary(ctx context.Context, tx pgx.Tx, actor auth.Context, ag Agreement, ben Beneficiary, reason string) (BeneficiarySignResult, error) {
	if err := s.store.MarkBeneficiaryRejected(ctx, tx, ben.ID, reason); err != nil {
		return BeneficiarySignResult{}, err
	}
	ben.HasSigned = false
	rejected := false
	ben.IsAccepted = &rejected
	if reason != "" {
		r := reason
		ben.RejectionReason = &r
	}

	if err := s.store.AppendTimelineEvent(ctx, tx, ag.ID, "BENEFICIARY_REJECTED", actor.UserID, map[string]any{
		"beneficiary_id": ben.ID,
		"reason":         reason,
	}); err != nil {
		return BeneficiarySignResult{}, err
	}
	if err := s.store.EnqueueOutbox(ctx, tx, OutboxTopicRejected, map[string]any{
		"agreement_id":   ag.ID,
		"beneficiary_id": ben.ID,
	}); err != nil {
		return BeneficiarySignResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BeneficiarySignResult{}, fmt.Errorf("agreement: commit beneficiary reject: %w", err)
	}

	// Rejection requires manual owner remediation; the agreement stays in
	// PENDING_SIGNATURES and can never auto-advance.
	return BeneficiarySignResult{Beneficiary: ben, AgreementStatus: ag.Status}, nil
}

// WitnessSignResult reports the activation outcome with all chain receipts.
type WitnessSignResult struct {
	Agreement           Agreement
	TokenID             int64
	MintTxHash          string
	MintExplorerURL     string
	WitnessTxHash       string
	WitnessExplorerURL  string
	FinalizeTxHash      string
	FinalizeExplorerURL string
}

// WitnessSign is the admin attestation that activates the agreement. It
// first catches the chain mirror up to the relational record (owner and
// beneficiary backfills), records the witness signature, finalizes on-chain
// when fully signed, and only then persists the relational activation. A
// finalize failure other than the benign already-finalized kind aborts the
// whole operation before any relational write.
func (s *SigningService) WitnessSign(ctx context.Context, actor auth.Context, agreementID string) (WitnessSignResult, error) {
	if !actor.IsAdmin() {
		return WitnessSignResult{}, Errorf(KindUnauthorized, "witnessing requires an admin")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WitnessSignResult{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ag, err := s.store.GetForUpdate(ctx, tx, agreementID)
	if err != nil {
		return WitnessSignResult{}, notFoundOr(err)
	}
	if ag.WitnessedAt != nil {
		return WitnessSignResult{}, Errorf(KindAlreadySigned, "agreement has already been witnessed")
	}
	if ag.Status != StatusPendingWitness {
		return WitnessSignResult{}, Errorf(KindInvalidState, "agreement in status %s cannot be witnessed", ag.Status)
	}

	if !s.mirror.IsConfigured() {
		return WitnessSignResult{}, Errorf(KindNotConfigured, "signature ledger is not configured")
	}

	beneficiaries, err := s.store.ListBeneficiaries(ctx, tx, agreementID)
	if err != nil {
		return WitnessSignResult{}, err
	}

	// Defensive: the token should exist by this stage.
	mint, err := s.mirror.EnsureMinted(ctx, agreementID, beneficiaryIDs(beneficiaries))
	if err != nil {
		return WitnessSignResult{}, onChainErr("mint agreement token", err)
	}
	if err := s.syncToken(ctx, tx, &ag, mint.TokenID); err != nil {
		return WitnessSignResult{}, err
	}

	if err := s.backfillOwner(ctx, ag, mint.TokenID); err != nil {
		return WitnessSignResult{}, err
	}

	// Catch the chain mirror up for every locally-signed beneficiary. This
	// loop is the main defense against partial failures earlier in the
	// workflow.
	for _, ben := range beneficiaries {
		if !ben.HasSigned {
			continue
		}
		if _, err := s.mirror.EnsureBeneficiarySigned(ctx, mint.TokenID, ben.ID); err != nil {
			return WitnessSignResult{}, onChainErr("backfill beneficiary signature", err)
		}
	}

	wit, err := s.mirror.EnsureWitnessSigned(ctx, mint.TokenID, actor.UserID)
	if err != nil {
		return WitnessSignResult{}, onChainErr("record witness signature", err)
	}

	var finalize chain.Receipt
	fully, err := s.mirror.FullySigned(ctx, mint.TokenID)
	if err != nil {
		return WitnessSignResult{}, onChainErr("check fully signed", err)
	}
	if fully {
		receipt, _, err := s.mirror.EnsureFinalized(ctx, mint.TokenID)
		if err != nil {
			return WitnessSignResult{}, onChainErr("finalize agreement", err)
		}
		finalize = receipt
	}

	if err := s.store.MarkWitnessed(ctx, tx, agreementID, actor.UserID, wit.SignedAt); err != nil {
		return WitnessSignResult{}, err
	}
	if err := s.store.SetStatus(ctx, tx, agreementID, StatusPendingWitness, StatusActive); err != nil {
		return WitnessSignResult{}, err
	}
	witnessID := actor.UserID
	witnessedAt := wit.SignedAt
	ag.WitnessID = &witnessID
	ag.WitnessedAt = &witnessedAt
	ag.Status = StatusActive

	if err := s.store.AppendTimelineEvent(ctx, tx, agreementID, "AGREEMENT_WITNESSED", actor.UserID, map[string]any{
		"token_id":      mint.TokenID,
		"witnessed_at":  wit.SignedAt,
		"finalize_ref":  finalize.TxHash,
		"signature_ref": wit.TxHash,
	}); err != nil {
		return WitnessSignResult{}, err
	}
	if err := s.store.EnqueueOutbox(ctx, tx, OutboxTopicWitnessed, map[string]any{
		"agreement_id": agreementID,
		"witness_id":   actor.UserID,
	}); err != nil {
		return WitnessSignResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return WitnessSignResult{}, fmt.Errorf("agreement: commit witness sign: %w", err)
	}

	return WitnessSignResult{
		Agreement:           ag,
		TokenID:             mint.TokenID,
		MintTxHash:          mint.Receipt.TxHash,
		MintExplorerURL:     s.mirror.ExplorerURL(mint.Receipt.TxHash),
		WitnessTxHash:       wit.TxHash,
		WitnessExplorerURL:  s.mirror.ExplorerURL(wit.TxHash),
		FinalizeTxHash:      finalize.TxHash,
		FinalizeExplorerURL: s.mirror.ExplorerURL(finalize.TxHash),
	}, nil
}

// backfillOwner records the owner signature on-chain when the relational
// record shows signed but the chain does not.
func (s *SigningService) backfillOwner(ctx context.Context, ag Agreement, tokenID int64) error {
	if !ag.OwnerHasSigned {
		return nil
	}
	data, err := s.mirror.Data(ctx, tokenID)
	if err != nil {
		return onChainErr("query agreement data", err)
	}
	if data.OwnerSigned {
		return nil
	}
	if _, err := s.mirror.EnsureOwnerSigned(ctx, tokenID); err != nil {
		return onChainErr("backfill owner signature", err)
	}
	return nil
}

func (s *SigningService) syncToken(ctx context.Context, tx pgx.Tx, ag *Agreement, tokenID int64) error {
	if ag.TokenID != nil && *ag.TokenID == tokenID {
		return nil
	}
	if err := s.store.SetToken(ctx, tx, ag.ID, tokenID); err != nil {
		return err
	}
	ag.TokenID = &tokenID
	return nil
}

func authorizeBeneficiary(actor auth.Context, ag Agreement, ben Beneficiary) error {
	if _, ok := ben.Ref.Registered(); ok {
		if ben.SignerUserID == nil || *ben.SignerUserID != actor.UserID {
			return Errorf(KindUnauthorized, "caller is not this beneficiary")
		}
		return nil
	}
	// Non-registered beneficiaries are signed for by the agreement owner.
	if actor.UserID != ag.OwnerID {
		return Errorf(KindUnauthorized, "only the owner may sign for a non-registered beneficiary")
	}
	return nil
}

func allResolved(beneficiaries []Beneficiary) bool {
	for _, b := range beneficiaries {
		if !b.Resolved() {
			return false
		}
	}
	return len(beneficiaries) > 0
}

func beneficiaryIDs(beneficiaries []Beneficiary) []string {
	ids := make([]string, 0, len(beneficiaries))
	for _, b := range beneficiaries {
		ids = append(ids, b.ID)
	}
	return ids
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBeneficiaryNotFound) {
		return WrapError(KindNotFound, "not found", err)
	}
	return err
}

func onChainErr(op string, err error) error {
	return WrapError(KindOnChainFailure, fmt.Sprintf("on-chain operation failed: %s: %s", op, chain.ErrorMessage(err)), err)
}
