package agreement

import (
	"errors"
	"time"
)

// DistributionType controls how beneficiary shares are validated.
type DistributionType string

const (
	DistributionPercentage DistributionType = "percentage"
	DistributionEqual      DistributionType = "equal"
	DistributionCustom     DistributionType = "custom"
)

// Agreement mirrors the agreements table columns touched by the signing
// workflow. The relational row is the system of record for business state;
// the on-chain token is the system of record for tamper evidence.
type Agreement struct {
	ID                string
	Title             string
	Description       *string
	DistributionType  DistributionType
	Status            Status
	OwnerID           string
	EffectiveDate     *time.Time
	ExpiryDate        *time.Time
	TokenID           *int64
	OwnerHasSigned    bool
	OwnerSignedAt     *time.Time
	OwnerSignatureRef *string
	WitnessID         *string
	WitnessedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BeneficiaryRefKind discriminates the two legal beneficiary references.
type BeneficiaryRefKind int

const (
	RefRegistered BeneficiaryRefKind = iota + 1
	RefNonRegistered
)

// BeneficiaryRef points at exactly one of a registered family link or a
// non-registered family member record. The zero value is invalid; construct
// through RegisteredRef or NonRegisteredRef.
type BeneficiaryRef struct {
	kind BeneficiaryRefKind
	id   string
}

var errEmptyRef = errors.New("agreement: beneficiary reference id required")

// RegisteredRef builds a reference to a registered family link.
func RegisteredRef(familyMemberID string) (BeneficiaryRef, error) {
	if familyMemberID == "" {
		return BeneficiaryRef{}, errEmptyRef
	}
	return BeneficiaryRef{kind: RefRegistered, id: familyMemberID}, nil
}

// NonRegisteredRef builds a reference to a non-registered member record.
func NonRegisteredRef(nonRegisteredID string) (BeneficiaryRef, error) {
	if nonRegisteredID == "" {
		return BeneficiaryRef{}, errEmptyRef
	}
	return BeneficiaryRef{kind: RefNonRegistered, id: nonRegisteredID}, nil
}

// RefFromColumns maps the pair of nullable foreign keys onto a BeneficiaryRef,
// rejecting rows where the exactly-one invariant is broken.
func RefFromColumns(familyMemberID, nonRegisteredID *string) (BeneficiaryRef, error) {
	switch {
	case familyMemberID != nil && nonRegisteredID != nil:
		return BeneficiaryRef{}, errors.New("agreement: beneficiary references both a registered and a non-registered member")
	case familyMemberID != nil:
		return RegisteredRef(*familyMemberID)
	case nonRegisteredID != nil:
		return NonRegisteredRef(*nonRegisteredID)
	default:
		return BeneficiaryRef{}, errors.New("agreement: beneficiary references no member")
	}
}

// Kind reports which reference variant this is.
func (r BeneficiaryRef) Kind() BeneficiaryRefKind { return r.kind }

// Registered returns the family link id when the reference is registered.
func (r BeneficiaryRef) Registered() (string, bool) {
	return r.id, r.kind == RefRegistered
}

// NonRegistered returns the record id when the reference is non-registered.
func (r BeneficiaryRef) NonRegistered() (string, bool) {
	return r.id, r.kind == RefNonRegistered
}

// Columns splits the reference back into the nullable foreign-key pair.
func (r BeneficiaryRef) Columns() (familyMemberID, nonRegisteredID *string) {
	switch r.kind {
	case RefRegistered:
		return &r.id, nil
	case RefNonRegistered:
		return nil, &r.id
	default:
		return nil, nil
	}
}

// Beneficiary is one entitlement within an agreement. Signature fields are
// immutable once HasSigned is true.
type Beneficiary struct {
	ID               string
	AgreementID      string
	Ref              BeneficiaryRef
	SharePercentage  float64
	ShareDescription *string
	HasSigned        bool
	SignedAt         *time.Time
	SignatureRef     *string
	IsAccepted       *bool
	RejectionReason  *string
	// SignerUserID is the account entitled to sign: the linked user for a
	// registered reference, nil for a non-registered one (the owner signs
	// on their behalf).
	SignerUserID *string
	CreatedAt    time.Time
}

// Rejected reports whether this beneficiary declined the agreement. A
// rejection permanently blocks automatic advancement to witnessing.
func (b Beneficiary) Rejected() bool {
	return b.IsAccepted != nil && !*b.IsAccepted
}

// Resolved reports whether this beneficiary counts toward "all signed".
func (b Beneficiary) Resolved() bool {
	return b.HasSigned && !b.Rejected()
}

// AssetAllocation joins an agreement to an owned asset. Read-only during
// signing.
type AssetAllocation struct {
	ID                  string
	AgreementID         string
	AssetID             string
	AllocatedValue      *float64
	AllocatedPercentage *float64
	Notes               *string
}

// Outbox topics emitted by the signing workflow.
const (
	OutboxTopicSubmitted         = "agreement.submitted"
	OutboxTopicOwnerSigned       = "agreement.owner_signed"
	OutboxTopicBeneficiarySigned = "agreement.beneficiary_signed"
	OutboxTopicRejected          = "agreement.rejected"
	OutboxTopicWitnessed         = "agreement.witnessed"
)
