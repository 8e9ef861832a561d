package chain

import (
	"context"
	"fmt"
	"sync"
)

// MockContract is an in-memory Contract used by tests and local development.
// It mimics the deployed contract's one-time-write semantics, including the
// AlreadyFinalized failure, and counts every write call.
type MockContract struct {
	mu sync.Mutex

	nextTokenID int64
	tokens      map[string]int64 // agreementID -> tokenID
	data        map[int64]*mockToken

	MintCalls        int
	OwnerSignCalls   int
	BenefSignCalls   int
	WitnessSignCalls int
	FinalizeCalls    int

	// FailNextWrite, when set, makes the next write call fail with a
	// provider error and then clears itself.
	FailNextWrite bool
}

type mockToken struct {
	agreementID    string
	beneficiaryIDs []string
	ownerSigned    bool
	ownerSignedAt  int64
	witnessSigned  bool
	witnessedAt    int64
	finalized      bool
	benefSigned    map[string]int64
	clock          int64
}

func NewMockContract() *MockContract {
	return &MockContract{
		nextTokenID: 1,
		tokens:      make(map[string]int64),
		data:        make(map[int64]*mockToken),
	}
}

func (m *MockContract) failNext() error {
	if m.FailNextWrite {
		m.FailNextWrite = false
		return &ContractError{Code: CodeProvider, Message: "provider unavailable"}
	}
	return nil
}

func (m *MockContract) receipt(t *mockToken, prefix string) Receipt {
	t.clock++
	return Receipt{
		TxHash:    fmt.Sprintf("0x%s%06d", prefix, t.clock),
		Timestamp: 1700000000 + t.clock,
	}
}

func (m *MockContract) AgreementToken(ctx context.Context, agreementID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokenID, ok := m.tokens[agreementID]
	return tokenID, ok, nil
}

func (m *MockContract) Mint(ctx context.Context, agreementID string, beneficiaryIDs []string) (int64, Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return 0, Receipt{}, err
	}
	m.MintCalls++
	if _, ok := m.tokens[agreementID]; ok {
		return 0, Receipt{}, &ContractError{Code: CodeProvider, Message: "agreement already minted"}
	}
	tokenID := m.nextTokenID
	m.nextTokenID++
	t := &mockToken{
		agreementID:    agreementID,
		beneficiaryIDs: append([]string(nil), beneficiaryIDs...),
		benefSigned:    make(map[string]int64),
	}
	m.tokens[agreementID] = tokenID
	m.data[tokenID] = t
	return tokenID, m.receipt(t, "mint"), nil
}

func (m *MockContract) token(tokenID int64) (*mockToken, error) {
	t, ok := m.data[tokenID]
	if !ok {
		return nil, &ContractError{Code: CodeTokenNotFound, Message: fmt.Sprintf("nonexistent token %d", tokenID)}
	}
	return t, nil
}

func (m *MockContract) AgreementData(ctx context.Context, tokenID int64) (AgreementData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.token(tokenID)
	if err != nil {
		return AgreementData{}, err
	}
	return AgreementData{
		OwnerSigned:    t.ownerSigned,
		OwnerSignedAt:  t.ownerSignedAt,
		WitnessSigned:  t.witnessSigned,
		WitnessedAt:    t.witnessedAt,
		Finalized:      t.finalized,
		BeneficiaryIDs: append([]string(nil), t.beneficiaryIDs...),
	}, nil
}

func (m *MockContract) BeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (BeneficiarySignature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.token(tokenID)
	if err != nil {
		return BeneficiarySignature{}, err
	}
	at, ok := t.benefSigned[beneficiaryID]
	return BeneficiarySignature{HasSigned: ok, SignedAt: at}, nil
}

func (m *MockContract) RecordOwnerSignature(ctx context.Context, tokenID int64) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return Receipt{}, err
	}
	m.OwnerSignCalls++
	t, err := m.token(tokenID)
	if err != nil {
		return Receipt{}, err
	}
	if t.ownerSigned {
		return Receipt{}, &ContractError{Code: CodeAlreadySigned, Message: "owner AlreadySigned"}
	}
	rcpt := m.receipt(t, "osig")
	t.ownerSigned = true
	t.ownerSignedAt = rcpt.Timestamp
	return rcpt, nil
}

func (m *MockContract) RecordBeneficiarySignature(ctx context.Context, tokenID int64, beneficiaryID string) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return Receipt{}, err
	}
	m.BenefSignCalls++
	t, err := m.token(tokenID)
	if err != nil {
		return Receipt{}, err
	}
	if _, ok := t.benefSigned[beneficiaryID]; ok {
		return Receipt{}, &ContractError{Code: CodeAlreadySigned, Message: "beneficiary AlreadySigned"}
	}
	rcpt := m.receipt(t, "bsig")
	t.benefSigned[beneficiaryID] = rcpt.Timestamp
	return rcpt, nil
}

func (m *MockContract) RecordWitnessSignature(ctx context.Context, tokenID int64, witnessID string) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return Receipt{}, err
	}
	m.WitnessSignCalls++
	t, err := m.token(tokenID)
	if err != nil {
		return Receipt{}, err
	}
	if t.witnessSigned {
		return Receipt{}, &ContractError{Code: CodeAlreadySigned, Message: "witness AlreadySigned"}
	}
	rcpt := m.receipt(t, "wsig")
	t.witnessSigned = true
	t.witnessedAt = rcpt.Timestamp
	return rcpt, nil
}

func (m *MockContract) Finalize(ctx context.Context, tokenID int64) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext(); err != nil {
		return Receipt{}, err
	}
	m.FinalizeCalls++
	t, err := m.token(tokenID)
	if err != nil {
		return Receipt{}, err
	}
	if t.finalized {
		return Receipt{}, &ContractError{Code: CodeAlreadyFinalized, Message: "execution reverted: AgreementAlreadyFinalized"}
	}
	rcpt := m.receipt(t, "fin")
	t.finalized = true
	return rcpt, nil
}

// SetOwnerUnsigned clears the owner signature, simulating a chain mirror
// that lags the relational record.
func (m *MockContract) SetOwnerUnsigned(tokenID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.data[tokenID]; ok {
		t.ownerSigned = false
		t.ownerSignedAt = 0
	}
}
