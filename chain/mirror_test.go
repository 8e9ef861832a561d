package chain

import (
	"context"
	"testing"
	"time"
)

func TestEnsureMinted_Idempotent(t *testing.T) {
	contract := NewMockContract()
	mirror := NewMirror(contract, "")
	ctx := context.Background()

	first, err := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1", "ben-2"})
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !first.Minted {
		t.Fatal("expected first ensure to mint")
	}
	if first.Receipt.TxHash == "" {
		t.Fatal("expected mint receipt")
	}

	second, err := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1", "ben-2"})
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.Minted {
		t.Fatal("expected second ensure to skip mint")
	}
	if second.TokenID != first.TokenID {
		t.Fatalf("token mismatch: %d vs %d", second.TokenID, first.TokenID)
	}
	if contract.MintCalls != 1 {
		t.Fatalf("expected 1 mint call, got %d", contract.MintCalls)
	}
}

func TestEnsureOwnerSigned_SkipsWhenAlreadyOnChain(t *testing.T) {
	contract := NewMockContract()
	mirror := NewMirror(contract, "")
	ctx := context.Background()

	mint, err := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	first, err := mirror.EnsureOwnerSigned(ctx, mint.TokenID)
	if err != nil {
		t.Fatalf("first owner sign: %v", err)
	}
	if !first.Recorded || first.TxHash == "" {
		t.Fatal("expected first call to record")
	}

	second, err := mirror.EnsureOwnerSigned(ctx, mint.TokenID)
	if err != nil {
		t.Fatalf("second owner sign: %v", err)
	}
	if second.Recorded {
		t.Fatal("expected second call to skip")
	}
	if !second.SignedAt.Equal(first.SignedAt) {
		t.Fatalf("expected reused timestamp %v, got %v", first.SignedAt, second.SignedAt)
	}
	if contract.OwnerSignCalls != 1 {
		t.Fatalf("expected 1 owner-sign call, got %d", contract.OwnerSignCalls)
	}
}

func TestFullySigned(t *testing.T) {
	contract := NewMockContract()
	mirror := NewMirror(contract, "")
	ctx := context.Background()

	mint, _ := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1", "ben-2"})

	if full, _ := mirror.FullySigned(ctx, mint.TokenID); full {
		t.Fatal("freshly minted agreement should not be fully signed")
	}

	if _, err := mirror.EnsureOwnerSigned(ctx, mint.TokenID); err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.EnsureBeneficiarySigned(ctx, mint.TokenID, "ben-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.EnsureWitnessSigned(ctx, mint.TokenID, "admin-1"); err != nil {
		t.Fatal(err)
	}

	if full, _ := mirror.FullySigned(ctx, mint.TokenID); full {
		t.Fatal("one beneficiary signature missing, should not be fully signed")
	}

	if _, err := mirror.EnsureBeneficiarySigned(ctx, mint.TokenID, "ben-2"); err != nil {
		t.Fatal(err)
	}

	full, err := mirror.FullySigned(ctx, mint.TokenID)
	if err != nil {
		t.Fatalf("fully signed: %v", err)
	}
	if !full {
		t.Fatal("expected fully signed")
	}
}

func TestEnsureFinalized_SwallowsAlreadyFinalized(t *testing.T) {
	contract := NewMockContract()
	mirror := NewMirror(contract, "")
	ctx := context.Background()

	mint, _ := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1"})

	receipt, finalized, err := mirror.EnsureFinalized(ctx, mint.TokenID)
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if !finalized || receipt.TxHash == "" {
		t.Fatal("expected first finalize to record")
	}

	_, finalized, err = mirror.EnsureFinalized(ctx, mint.TokenID)
	if err != nil {
		t.Fatalf("second finalize should swallow AlreadyFinalized, got %v", err)
	}
	if finalized {
		t.Fatal("expected second finalize to be a no-op")
	}
	if contract.FinalizeCalls != 2 {
		t.Fatalf("expected 2 finalize attempts, got %d", contract.FinalizeCalls)
	}
}

func TestTimestampDate_RoundTrip(t *testing.T) {
	contract := NewMockContract()
	mirror := NewMirror(contract, "")
	ctx := context.Background()

	mint, _ := mirror.EnsureMinted(ctx, "agr-1", []string{"ben-1"})
	out, err := mirror.EnsureOwnerSigned(ctx, mint.TokenID)
	if err != nil {
		t.Fatal(err)
	}

	data, err := mirror.Data(ctx, mint.TokenID)
	if err != nil {
		t.Fatal(err)
	}
	if got := TimestampDate(data.OwnerSignedAt); !got.Equal(out.SignedAt) {
		t.Fatalf("round trip mismatch: wrote %v, read %v", out.SignedAt, got)
	}

	if !TimestampDate(0).IsZero() {
		t.Fatal("zero timestamp should map to zero time")
	}
	want := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)
	if got := TimestampDate(1700000000); !got.Equal(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExplorerURL(t *testing.T) {
	mirror := NewMirror(NewMockContract(), "https://sepolia.etherscan.io")
	if got := mirror.ExplorerURL("0xabc"); got != "https://sepolia.etherscan.io/tx/0xabc" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := mirror.ExplorerURL(""); got != "" {
		t.Fatalf("expected empty url for empty hash, got %q", got)
	}
	bare := NewMirror(NewMockContract(), "")
	if got := bare.ExplorerURL("0xabc"); got != "" {
		t.Fatalf("expected empty url without explorer base, got %q", got)
	}
}

func TestIsConfigured(t *testing.T) {
	if NewMirror(nil, "").IsConfigured() {
		t.Fatal("nil contract should not be configured")
	}
	if !NewMirror(NewMockContract(), "").IsConfigured() {
		t.Fatal("mock contract should be configured")
	}
}

func TestErrorClassification(t *testing.T) {
	if classify("", "execution reverted: AgreementAlreadyFinalized") != CodeAlreadyFinalized {
		t.Fatal("expected revert string to classify as already finalized")
	}
	if classify(string(CodeAlreadySigned), "") != CodeAlreadySigned {
		t.Fatal("expected explicit code to win")
	}
	if classify("", "some rpc error") != CodeProvider {
		t.Fatal("expected fallback to provider error")
	}

	err := &ContractError{Code: CodeAlreadyFinalized, Message: "done"}
	if !IsAlreadyFinalized(err) {
		t.Fatal("expected IsAlreadyFinalized")
	}
	if ErrorMessage(err) != "done" {
		t.Fatalf("unexpected message %q", ErrorMessage(err))
	}
}
