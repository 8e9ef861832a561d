package agreement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when no agreement row exists for the provided identifier.
	ErrNotFound = errors.New("agreement: not found")
	// ErrBeneficiaryNotFound is returned when no beneficiary row exists for the provided identifier.
	ErrBeneficiaryNotFound = errors.New("agreement: beneficiary not found")
)

// Store defines the transactional data access required by the signing
// service. Every method runs inside the caller's transaction so the row lock
// taken by GetForUpdate covers the whole read-recompute-write sequence.
type Store interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, agreementID string) (Agreement, error)
	ListBeneficiaries(ctx context.Context, tx pgx.Tx, agreementID string) ([]Beneficiary, error)
	GetBeneficiary(ctx context.Context, tx pgx.Tx, beneficiaryID string) (Beneficiary, error)
	SetToken(ctx context.Context, tx pgx.Tx, agreementID string, tokenID int64) error
	MarkOwnerSigned(ctx context.Context, tx pgx.Tx, agreementID string, at time.Time, ref string) error
	MarkBeneficiarySigned(ctx context.Context, tx pgx.Tx, beneficiaryID string, at time.Time, ref string) error
	MarkBeneficiaryRejected(ctx context.Context, tx pgx.Tx, beneficiaryID, reason string) error
	MarkWitnessed(ctx context.Context, tx pgx.Tx, agreementID, witnessID string, at time.Time) error
	SetStatus(ctx context.Context, tx pgx.Tx, agreementID string, from, to Status) error
	AppendTimelineEvent(ctx context.Context, tx pgx.Tx, agreementID, eventType, actorID string, payload map[string]any) error
	EnqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Repository is the pgx implementation of Store.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

const agreementColumns = `
id, title, description, distribution_type, status, owner_id,
effective_date, expiry_date, token_id,
owner_has_signed, owner_signed_at, owner_signature_ref,
witness_id, witnessed_at, created_at, updated_at`

// GetForUpdate loads the agreement and locks its row for the remainder of
// the transaction. Concurrent signings on the same agreement serialize here.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, agreementID string) (Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1 FOR UPDATE`
	ag, err := scanAgreement(tx.QueryRow(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: load for update: %w", err)
	}
	return ag, nil
}

const beneficiaryQuery = `
SELECT b.id, b.agreement_id, b.family_member_id, b.non_registered_member_id,
       b.share_percentage, b.share_description,
       b.has_signed, b.signed_at, b.signature_ref,
       b.is_accepted, b.rejection_reason,
       fm.related_user_id, b.created_at
FROM agreement_beneficiaries b
LEFT JOIN family_members fm ON fm.id = b.family_member_id`

// ListBeneficiaries returns all beneficiaries for the agreement, freshly
// read so aggregate checks never rely on in-memory request data.
func (r *Repository) ListBeneficiaries(ctx context.Context, tx pgx.Tx, agreementID string) ([]Beneficiary, error) {
	rows, err := tx.Query(ctx, beneficiaryQuery+` WHERE b.agreement_id = $1 ORDER BY b.created_at`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("agreement: list beneficiaries: %w", err)
	}
	defer rows.Close()

	var beneficiaries []Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, rows.Err()
}

// GetBeneficiary fetches a single beneficiary row.
func (r *Repository) GetBeneficiary(ctx context.Context, tx pgx.Tx, beneficiaryID string) (Beneficiary, error) {
	b, err := scanBeneficiary(tx.QueryRow(ctx, beneficiaryQuery+` WHERE b.id = $1`, beneficiaryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Beneficiary{}, ErrBeneficiaryNotFound
		}
		return Beneficiary{}, fmt.Errorf("agreement: load beneficiary: %w", err)
	}
	return b, nil
}

// SetToken records the on-chain token backing the agreement.
func (r *Repository) SetToken(ctx context.Context, tx pgx.Tx, agreementID string, tokenID int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE agreements SET token_id = $1, updated_at = now() WHERE id = $2
	`, tokenID, agreementID); err != nil {
		return fmt.Errorf("agreement: set token: %w", err)
	}
	return nil
}

func (r *Repository) MarkOwnerSigned(ctx context.Context, tx pgx.Tx, agreementID string, at time.Time, ref string) error {
	var refVal any
	if ref != "" {
		refVal = ref
	}
	if _, err := tx.Exec(ctx, `
		UPDATE agreements
		SET owner_has_signed = TRUE,
		    owner_signed_at = $1,
		    owner_signature_ref = COALESCE($2, owner_signature_ref),
		    updated_at = now()
		WHERE id = $3
	`, at, refVal, agreementID); err != nil {
		return fmt.Errorf("agreement: mark owner signed: %w", err)
	}
	return nil
}

func (r *Repository) MarkBeneficiarySigned(ctx context.Context, tx pgx.Tx, beneficiaryID string, at time.Time, ref string) error {
	var refVal any
	if ref != "" {
		refVal = ref
	}
	if _, err := tx.Exec(ctx, `
		UPDATE agreement_beneficiaries
		SET has_signed = TRUE,
		    signed_at = $1,
		    signature_ref = COALESCE($2, signature_ref),
		    is_accepted = TRUE
		WHERE id = $3
	`, at, refVal, beneficiaryID); err != nil {
		return fmt.Errorf("agreement: mark beneficiary signed: %w", err)
	}
	return nil
}

func (r *Repository) MarkBeneficiaryRejected(ctx context.Context, tx pgx.Tx, beneficiaryID, reason string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE agreement_beneficiaries
		SET has_signed = FALSE,
		    is_accepted = FALSE,
		    rejection_reason = $1
		WHERE id = $2
	`, reason, beneficiaryID); err != nil {
		return fmt.Errorf("agreement: mark beneficiary rejected: %w", err)
	}
	return nil
}

func (r *Repository) MarkWitnessed(ctx context.Context, tx pgx.Tx, agreementID, witnessID string, at time.Time) error {
	if _, err := tx.Exec(ctx, `
		UPDATE agreements
		SET witness_id = $1, witnessed_at = $2, updated_at = now()
		WHERE id = $3
	`, witnessID, at, agreementID); err != nil {
		return fmt.Errorf("agreement: mark witnessed: %w", err)
	}
	return nil
}

// SetStatus applies a transition after validating it against the status
// graph. The WHERE clause re-checks the current status so a stale caller
// cannot clobber a concurrent transition.
func (r *Repository) SetStatus(ctx context.Context, tx pgx.Tx, agreementID string, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("agreement: invalid transition %s -> %s", from, to)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE agreements SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, agreementID, from)
	if err != nil {
		return fmt.Errorf("agreement: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agreement: status changed concurrently, expected %s", from)
	}
	return nil
}

// AppendTimelineEvent records an immutable business event for the agreement.
func (r *Repository) AppendTimelineEvent(ctx context.Context, tx pgx.Tx, agreementID, eventType, actorID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("agreement: marshal timeline payload: %w", err)
	}
	var actor any
	if actorID != "" {
		actor = actorID
	}
	const q = `
		INSERT INTO timeline_events (agreement_id, type, payload, actor_id)
		VALUES ($1, $2, $3::jsonb, $4::uuid)
	`
	if _, err := tx.Exec(ctx, q, agreementID, eventType, body, actor); err != nil {
		return fmt.Errorf("agreement: insert timeline event: %w", err)
	}
	return nil
}

// EnqueueOutbox writes a transactional outbox message for downstream delivery.
func (r *Repository) EnqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("agreement: marshal outbox payload: %w", err)
	}
	const q = `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`
	if _, err := tx.Exec(ctx, q, topic, body); err != nil {
		return fmt.Errorf("agreement: enqueue outbox: %w", err)
	}
	return nil
}

func scanAgreement(row pgx.Row) (Agreement, error) {
	var ag Agreement
	err := row.Scan(
		&ag.ID,
		&ag.Title,
		&ag.Description,
		&ag.DistributionType,
		&ag.Status,
		&ag.OwnerID,
		&ag.EffectiveDate,
		&ag.ExpiryDate,
		&ag.TokenID,
		&ag.OwnerHasSigned,
		&ag.OwnerSignedAt,
		&ag.OwnerSignatureRef,
		&ag.WitnessID,
		&ag.WitnessedAt,
		&ag.CreatedAt,
		&ag.UpdatedAt,
	)
	return ag, err
}

func scanBeneficiary(row pgx.Row) (Beneficiary, error) {
	var (
		b               Beneficiary
		familyMemberID  *string
		nonRegisteredID *string
	)
	err := row.Scan(
		&b.ID,
		&b.AgreementID,
		&familyMemberID,
		&nonRegisteredID,
		&b.SharePercentage,
		&b.ShareDescription,
		&b.HasSigned,
		&b.SignedAt,
		&b.SignatureRef,
		&b.IsAccepted,
		&b.RejectionReason,
		&b.SignerUserID,
		&b.CreatedAt,
	)
	if err != nil {
		return Beneficiary{}, err
	}
	ref, err := RefFromColumns(familyMemberID, nonRegisteredID)
	if err != nil {
		return Beneficiary{}, fmt.Errorf("agreement: beneficiary %s: %w", b.ID, err)
	}
	b.Ref = ref
	return b, nil
}
