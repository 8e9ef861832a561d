package agreement

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidationResult collects the human-readable reasons an input was rejected.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func validationResult(errs []string) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Err converts a failed result into a workflow error, or nil when valid.
func (v ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	return Errorf(KindValidationFailed, "%s", strings.Join(v.Errors, "; "))
}

// AgreementInput is the draft-level data checked before any mutation.
type AgreementInput struct {
	Title            string
	DistributionType DistributionType
	EffectiveDate    *time.Time
	ExpiryDate       *time.Time
}

// ValidateAgreementInput checks title/date/distribution-type invariants.
// Pure and synchronous; no I/O.
func ValidateAgreementInput(in AgreementInput) ValidationResult {
	var errs []string
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "title is required")
	}
	switch in.DistributionType {
	case DistributionPercentage, DistributionEqual, DistributionCustom:
	default:
		errs = append(errs, fmt.Sprintf("unknown distribution type %q", in.DistributionType))
	}
	if in.EffectiveDate != nil && in.ExpiryDate != nil && !in.ExpiryDate.After(*in.EffectiveDate) {
		errs = append(errs, "expiry date must be after effective date")
	}
	return validationResult(errs)
}

// BeneficiaryInput is one entitlement as supplied at draft time.
type BeneficiaryInput struct {
	Ref              BeneficiaryRef
	SharePercentage  float64
	ShareDescription string
}

const shareEpsilon = 0.001

// ValidateBeneficiaries checks the share composition against the
// distribution type's rules. An agreement cannot leave DRAFT until this
// passes.
func ValidateBeneficiaries(list []BeneficiaryInput, dt DistributionType) ValidationResult {
	var errs []string
	if len(list) == 0 {
		errs = append(errs, "at least one beneficiary is required")
		return validationResult(errs)
	}

	var sum float64
	for i, b := range list {
		if b.Ref.Kind() == 0 {
			errs = append(errs, fmt.Sprintf("beneficiary %d: missing member reference", i+1))
		}
		switch dt {
		case DistributionPercentage:
			if b.SharePercentage <= 0 || b.SharePercentage > 100 {
				errs = append(errs, fmt.Sprintf("beneficiary %d: share percentage must be in (0, 100]", i+1))
			}
			sum += b.SharePercentage
		case DistributionEqual:
			if b.SharePercentage != 0 && math.Abs(b.SharePercentage-100/float64(len(list))) > shareEpsilon {
				errs = append(errs, fmt.Sprintf("beneficiary %d: share must be equal or omitted for equal distribution", i+1))
			}
		case DistributionCustom:
			if strings.TrimSpace(b.ShareDescription) == "" {
				errs = append(errs, fmt.Sprintf("beneficiary %d: share description required for custom distribution", i+1))
			}
		}
	}

	if dt == DistributionPercentage && math.Abs(sum-100) > shareEpsilon {
		errs = append(errs, fmt.Sprintf("share percentages must sum to 100, got %.2f", sum))
	}

	return validationResult(errs)
}

// AssetAllocationInput is one asset allocation as supplied at draft time.
type AssetAllocationInput struct {
	AssetID             string
	AllocatedValue      *float64
	AllocatedPercentage *float64
	Notes               string
}

// ValidateAssets checks allocation invariants: at least one asset, no
// duplicates, values non-negative, percentages in (0, 100].
func ValidateAssets(list []AssetAllocationInput) ValidationResult {
	var errs []string
	if len(list) == 0 {
		errs = append(errs, "at least one asset allocation is required")
		return validationResult(errs)
	}

	seen := make(map[string]bool, len(list))
	for i, a := range list {
		if a.AssetID == "" {
			errs = append(errs, fmt.Sprintf("allocation %d: asset id required", i+1))
			continue
		}
		if seen[a.AssetID] {
			errs = append(errs, fmt.Sprintf("allocation %d: asset %s allocated more than once", i+1, a.AssetID))
		}
		seen[a.AssetID] = true
		if a.AllocatedValue != nil && *a.AllocatedValue < 0 {
			errs = append(errs, fmt.Sprintf("allocation %d: allocated value must be non-negative", i+1))
		}
		if a.AllocatedPercentage != nil && (*a.AllocatedPercentage <= 0 || *a.AllocatedPercentage > 100) {
			errs = append(errs, fmt.Sprintf("allocation %d: allocated percentage must be in (0, 100]", i+1))
		}
	}

	return validationResult(errs)
}
