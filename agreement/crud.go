package agreement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateParams carries everything needed to materialise a draft agreement.
type CreateParams struct {
	Title            string
	Description      string
	DistributionType DistributionType
	EffectiveDate    *time.Time
	ExpiryDate       *time.Time
	Beneficiaries    []BeneficiaryInput
	Assets           []AssetAllocationInput
}

// View bundles an agreement with its beneficiaries and allocations for the
// API layer.
type View struct {
	Agreement     Agreement
	Beneficiaries []Beneficiary
	Assets        []AssetAllocation
}

// CRUDService handles draft-lifecycle operations outside the signing
// workflow.
type CRUDService struct {
	pool *pgxpool.Pool
}

func NewCRUDService(pool *pgxpool.Pool) *CRUDService {
	return &CRUDService{pool: pool}
}

// Create validates and inserts a draft agreement with its beneficiaries and
// asset allocations in one transaction.
func (s *CRUDService) Create(ctx context.Context, ownerID string, params CreateParams) (View, error) {
	if res := ValidateAgreementInput(AgreementInput{
		Title:            params.Title,
		DistributionType: params.DistributionType,
		EffectiveDate:    params.EffectiveDate,
		ExpiryDate:       params.ExpiryDate,
	}); !res.Valid {
		return View{}, res.Err()
	}
	if res := ValidateBeneficiaries(params.Beneficiaries, params.DistributionType); !res.Valid {
		return View{}, res.Err()
	}
	if res := ValidateAssets(params.Assets); !res.Valid {
		return View{}, res.Err()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return View{}, fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var desc any
	if params.Description != "" {
		desc = params.Description
	}

	const insertSQL = `
		INSERT INTO agreements (title, description, distribution_type, owner_id, effective_date, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'draft')
		RETURNING ` + agreementColumns

	ag, err := scanAgreement(tx.QueryRow(ctx, insertSQL,
		params.Title, desc, params.DistributionType, ownerID, params.EffectiveDate, params.ExpiryDate))
	if err != nil {
		return View{}, fmt.Errorf("agreement: insert: %w", err)
	}

	view := View{Agreement: ag}

	for _, in := range params.Beneficiaries {
		ben, err := s.insertBeneficiary(ctx, tx, ag.ID, ownerID, in)
		if err != nil {
			return View{}, err
		}
		view.Beneficiaries = append(view.Beneficiaries, ben)
	}

	for _, in := range params.Assets {
		alloc, err := s.insertAllocation(ctx, tx, ag.ID, ownerID, in)
		if err != nil {
			return View{}, err
		}
		view.Assets = append(view.Assets, alloc)
	}

	repo := NewRepository()
	if err := repo.AppendTimelineEvent(ctx, tx, ag.ID, "AGREEMENT_CREATED", ownerID, map[string]any{
		"title":             params.Title,
		"distribution_type": params.DistributionType,
		"beneficiary_count": len(params.Beneficiaries),
	}); err != nil {
		return View{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return View{}, fmt.Errorf("agreement: commit: %w", err)
	}

	return view, nil
}

func (s *CRUDService) insertBeneficiary(ctx context.Context, tx pgx.Tx, agreementID, ownerID string, in BeneficiaryInput) (Beneficiary, error) {
	familyMemberID, nonRegisteredID := in.Ref.Columns()

	// The referenced member record must belong to the agreement owner.
	if familyMemberID != nil {
		var memberOwner string
		err := tx.QueryRow(ctx, `SELECT user_id FROM family_members WHERE id = $1`, *familyMemberID).Scan(&memberOwner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Beneficiary{}, Errorf(KindNotFound, "family member %s not found", *familyMemberID)
			}
			return Beneficiary{}, fmt.Errorf("agreement: check family member: %w", err)
		}
		if memberOwner != ownerID {
			return Beneficiary{}, Errorf(KindUnauthorized, "family member does not belong to owner")
		}
	}
	if nonRegisteredID != nil {
		var memberOwner string
		err := tx.QueryRow(ctx, `SELECT owner_user_id FROM non_registered_members WHERE id = $1`, *nonRegisteredID).Scan(&memberOwner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Beneficiary{}, Errorf(KindNotFound, "non-registered member %s not found", *nonRegisteredID)
			}
			return Beneficiary{}, fmt.Errorf("agreement: check non-registered member: %w", err)
		}
		if memberOwner != ownerID {
			return Beneficiary{}, Errorf(KindUnauthorized, "non-registered member does not belong to owner")
		}
	}

	var shareDesc any
	if in.ShareDescription != "" {
		shareDesc = in.ShareDescription
	}

	const insertSQL = `
		INSERT INTO agreement_beneficiaries (agreement_id, family_member_id, non_registered_member_id, share_percentage, share_description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	ben := Beneficiary{
		AgreementID:     agreementID,
		Ref:             in.Ref,
		SharePercentage: in.SharePercentage,
	}
	if in.ShareDescription != "" {
		sd := in.ShareDescription
		ben.ShareDescription = &sd
	}
	if err := tx.QueryRow(ctx, insertSQL, agreementID, familyMemberID, nonRegisteredID, in.SharePercentage, shareDesc).
		Scan(&ben.ID, &ben.CreatedAt); err != nil {
		return Beneficiary{}, fmt.Errorf("agreement: insert beneficiary: %w", err)
	}
	return ben, nil
}

func (s *CRUDService) insertAllocation(ctx context.Context, tx pgx.Tx, agreementID, ownerID string, in AssetAllocationInput) (AssetAllocation, error) {
	var assetOwner string
	err := tx.QueryRow(ctx, `SELECT owner_id FROM assets WHERE id = $1`, in.AssetID).Scan(&assetOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssetAllocation{}, Errorf(KindNotFound, "asset %s not found", in.AssetID)
		}
		return AssetAllocation{}, fmt.Errorf("agreement: check asset: %w", err)
	}
	if assetOwner != ownerID {
		return AssetAllocation{}, Errorf(KindUnauthorized, "asset does not belong to owner")
	}

	var notes any
	if in.Notes != "" {
		notes = in.Notes
	}

	const insertSQL = `
		INSERT INTO agreement_assets (agreement_id, asset_id, allocated_value, allocated_percentage, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	alloc := AssetAllocation{
		AgreementID:         agreementID,
		AssetID:             in.AssetID,
		AllocatedValue:      in.AllocatedValue,
		AllocatedPercentage: in.AllocatedPercentage,
	}
	if in.Notes != "" {
		n := in.Notes
		alloc.Notes = &n
	}
	if err := tx.QueryRow(ctx, insertSQL, agreementID, in.AssetID, in.AllocatedValue, in.AllocatedPercentage, notes).
		Scan(&alloc.ID); err != nil {
		return AssetAllocation{}, fmt.Errorf("agreement: insert allocation: %w", err)
	}
	return alloc, nil
}

// Get loads an agreement with its beneficiaries and allocations. Owners,
// beneficiary signers, and admins may read it.
func (s *CRUDService) Get(ctx context.Context, agreementID string) (View, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`
	ag, err := scanAgreement(s.pool.QueryRow(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, WrapError(KindNotFound, "agreement not found", ErrNotFound)
		}
		return View{}, fmt.Errorf("agreement: get: %w", err)
	}

	view := View{Agreement: ag}

	rows, err := s.pool.Query(ctx, beneficiaryQuery+` WHERE b.agreement_id = $1 ORDER BY b.created_at`, agreementID)
	if err != nil {
		return View{}, fmt.Errorf("agreement: list beneficiaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		ben, err := scanBeneficiary(rows)
		if err != nil {
			return View{}, err
		}
		view.Beneficiaries = append(view.Beneficiaries, ben)
	}
	if err := rows.Err(); err != nil {
		return View{}, err
	}

	assetRows, err := s.pool.Query(ctx, `
		SELECT id, agreement_id, asset_id, allocated_value, allocated_percentage, notes
		FROM agreement_assets WHERE agreement_id = $1
	`, agreementID)
	if err != nil {
		return View{}, fmt.Errorf("agreement: list allocations: %w", err)
	}
	defer assetRows.Close()
	for assetRows.Next() {
		var a AssetAllocation
		if err := assetRows.Scan(&a.ID, &a.AgreementID, &a.AssetID, &a.AllocatedValue, &a.AllocatedPercentage, &a.Notes); err != nil {
			return View{}, err
		}
		view.Assets = append(view.Assets, a)
	}
	return view, assetRows.Err()
}

// ListByOwner returns the agreements created by a user, newest first.
func (s *CRUDService) ListByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]Agreement, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := `SELECT ` + agreementColumns + `
		FROM agreements
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("agreement: list: %w", err)
	}
	defer rows.Close()

	agreements := []Agreement{}
	for rows.Next() {
		ag, err := scanAgreement(rows)
		if err != nil {
			return nil, 0, err
		}
		agreements = append(agreements, ag)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agreements WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return agreements, total, nil
}
