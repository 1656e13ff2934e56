package vccs

import (
	"context"
	"sync"

	"github.com/go-credential-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type memoryEntry struct {
	hash    []byte
	revoked bool
}

// Memory is an in-process verification service. Secrets are kept only as
// bcrypt hashes. It is used in development when no remote service is
// configured, and in tests, where faults can be injected per operation.
type Memory struct {
	mu          sync.Mutex
	cost        int
	entries     map[string]*memoryEntry
	addFault    *domain.Outcome
	revokeFault *domain.Outcome
	calls       map[string]int
}

// NewMemory returns an empty service hashing with the given bcrypt cost.
// Costs below bcrypt.MinCost fall back to bcrypt.DefaultCost.
func NewMemory(cost int) *Memory {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Memory{
		cost:    cost,
		entries: make(map[string]*memoryEntry),
		calls:   make(map[string]int),
	}
}

func memoryKey(userRef, credentialID string) string { return userRef + "/" + credentialID }

func (m *Memory) Add(_ context.Context, userRef, credentialID, secret string) domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[actionAdd]++
	if m.addFault != nil {
		return *m.addFault
	}
	if secret == "" {
		return domain.Rejected("empty secret")
	}
	key := memoryKey(userRef, credentialID)
	if _, ok := m.entries[key]; ok {
		return domain.Rejected("duplicate credential id")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), m.cost)
	if err != nil {
		return domain.Rejected(err.Error())
	}
	m.entries[key] = &memoryEntry{hash: hash}
	return domain.Success()
}

func (m *Memory) Verify(_ context.Context, userRef, credentialID, secret string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[actionVerify]++
	e, ok := m.entries[memoryKey(userRef, credentialID)]
	if !ok || e.revoked {
		return false
	}
	return bcrypt.CompareHashAndPassword(e.hash, []byte(secret)) == nil
}

func (m *Memory) Revoke(_ context.Context, userRef, credentialID, _ string) domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[actionRevoke]++
	if m.revokeFault != nil {
		return *m.revokeFault
	}
	e, ok := m.entries[memoryKey(userRef, credentialID)]
	if !ok {
		return domain.Rejected("unknown credential")
	}
	e.revoked = true
	return domain.Success()
}

// FailAdd makes every subsequent Add return o.
func (m *Memory) FailAdd(o domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFault = &o
}

// FailRevoke makes every subsequent Revoke return o without disabling anything.
func (m *Memory) FailRevoke(o domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeFault = &o
}

// ClearFaults restores normal behaviour.
func (m *Memory) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFault = nil
	m.revokeFault = nil
}

// Calls returns how many times op ("add", "verify" or "revoke") was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Enabled reports whether the service would still accept credentialID.
func (m *Memory) Enabled(userRef, credentialID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[memoryKey(userRef, credentialID)]
	return ok && !e.revoked
}
