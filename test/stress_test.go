package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"estateflow/agreement"
	"estateflow/auth"
	"estateflow/chain"
	"estateflow/test/infra"
)

// TestConcurrentBeneficiarySigning spins up a real PostgreSQL and has every
// beneficiary sign the same agreement at once. The row lock must serialize
// the signings so the PENDING_SIGNATURES -> PENDING_WITNESS transition
// happens exactly once, with exactly one READY_FOR_WITNESS event.
func TestConcurrentBeneficiarySigning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed stress test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgC, dsn, err := infra.StartPostgres16(ctx)
	if err != nil {
		t.Skipf("cannot start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, true)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		_ = teardown(context.Background())
	})

	const beneficiaryCount = 8

	ownerID := seedUser(ctx, t, pool, "owner", "member")
	agreementID := seedAgreement(ctx, t, pool, ownerID)

	signers := make([]string, beneficiaryCount)
	beneficiaries := make([]string, beneficiaryCount)
	for i := range signers {
		signers[i] = seedUser(ctx, t, pool, fmt.Sprintf("heir%d", i), "member")
		famID := seedFamilyMember(ctx, t, pool, ownerID, signers[i])
		beneficiaries[i] = seedBeneficiary(ctx, t, pool, agreementID, famID, 100.0/beneficiaryCount)
	}

	contract := chain.NewMockContract()
	svc := agreement.NewSigningService(pool, agreement.NewRepository(), chain.NewMirror(contract, ""))

	if _, err := svc.OwnerSign(ctx, auth.Context{UserID: ownerID, Role: auth.RoleMember}, agreementID, true); err != nil {
		t.Fatalf("owner sign: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < beneficiaryCount; i++ {
		g.Go(func() error {
			_, err := svc.BeneficiarySign(gctx, auth.Context{UserID: signers[i], Role: auth.RoleMember}, agreementID,
				agreement.BeneficiaryDecision{BeneficiaryID: beneficiaries[i], Accept: true})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent beneficiary signing: %v", err)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM agreements WHERE id = $1`, agreementID).Scan(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != string(agreement.StatusPendingWitness) {
		t.Fatalf("expected pending_witness after all signed, got %q", status)
	}

	var signedCount int
	if err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM agreement_beneficiaries
		WHERE agreement_id = $1 AND has_signed = TRUE
	`, agreementID).Scan(&signedCount); err != nil {
		t.Fatalf("count signed: %v", err)
	}
	if signedCount != beneficiaryCount {
		t.Fatalf("expected %d signed beneficiaries, got %d", beneficiaryCount, signedCount)
	}

	// The transition must have fired exactly once despite the concurrency.
	var readyEvents int
	if err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM timeline_events
		WHERE agreement_id = $1 AND type = 'READY_FOR_WITNESS'
	`, agreementID).Scan(&readyEvents); err != nil {
		t.Fatalf("count ready events: %v", err)
	}
	if readyEvents != 1 {
		t.Fatalf("expected exactly one READY_FOR_WITNESS event, got %d", readyEvents)
	}

	// Every beneficiary hit the chain exactly once.
	if contract.BenefSignCalls != beneficiaryCount {
		t.Fatalf("expected %d beneficiary chain writes, got %d", beneficiaryCount, contract.BenefSignCalls)
	}
}

func seedUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO users (email, full_name, password_hash, role)
		VALUES ($1, $2, 'x', $3) RETURNING id
	`, fmt.Sprintf("%s+%d@example.com", name, time.Now().UnixNano()), name, role).Scan(&id)
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return id
}

func seedAgreement(ctx context.Context, t *testing.T, pool *pgxpool.Pool, ownerID string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO agreements (title, distribution_type, owner_id, status)
		VALUES ('Stress estate plan', 'percentage', $1, 'draft') RETURNING id
	`, ownerID).Scan(&id)
	if err != nil {
		t.Fatalf("seed agreement: %v", err)
	}
	return id
}

func seedFamilyMember(ctx context.Context, t *testing.T, pool *pgxpool.Pool, ownerID, relatedID string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO family_members (user_id, related_user_id, relationship)
		VALUES ($1, $2, 'heir') RETURNING id
	`, ownerID, relatedID).Scan(&id)
	if err != nil {
		t.Fatalf("seed family member: %v", err)
	}
	return id
}

func seedBeneficiary(ctx context.Context, t *testing.T, pool *pgxpool.Pool, agreementID, familyMemberID string, share float64) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO agreement_beneficiaries (agreement_id, family_member_id, share_percentage)
		VALUES ($1, $2, $3) RETURNING id
	`, agreementID, familyMemberID, share).Scan(&id)
	if err != nil {
		t.Fatalf("seed beneficiary: %v", err)
	}
	return id
}
