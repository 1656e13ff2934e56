package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/id"
)

// Revocation reasons recorded on tombstones written by the manager.
const (
	ReasonChanged   = "changed"
	ReasonReset     = "reset"
	ReasonRevokeAll = "revoke all"
	ReasonOrphaned  = "orphaned"
)

// Verifier is the verification service as seen by the manager. Every call is a
// single synchronous attempt; Verify reports false on any transport failure.
type Verifier interface {
	Add(ctx context.Context, userRef, credentialID, secret string) domain.Outcome
	Verify(ctx context.Context, userRef, credentialID, secret string) bool
	Revoke(ctx context.Context, userRef, credentialID, reason string) domain.Outcome
}

// Status classifies the expected outcomes of a lifecycle operation.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
	StatusDenied
	StatusRejected
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOK:
		return "ok"
	case StatusDenied:
		return "denied"
	case StatusRejected:
		return "rejected"
	case StatusUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the business outcome of a lifecycle operation. The zero Result
// is not OK.
type Result struct {
	Status Status
	Reason string
}

func (r Result) OK() bool { return r.Status == StatusOK }

func resultFrom(o domain.Outcome) Result {
	switch o.Status {
	case domain.OutcomeSuccess:
		return Result{Status: StatusOK}
	case domain.OutcomeRejected:
		return Result{Status: StatusRejected, Reason: o.Reason}
	default:
		return Result{Status: StatusUnreachable, Reason: o.Reason}
	}
}

type ManagerDeps struct {
	Verifier Verifier
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

// Pending carries the remote half of a staged mutation. The user already
// reflects the mutation in memory; Commit sends the deferred revokes once the
// user is stored, Abort disables the added credential when it is not.
type Pending struct {
	added   string
	revokes []revocation
}

type revocation struct {
	credentialID string
	reason       string
}

// Added returns the id of the credential the mutation created, if any.
func (p *Pending) Added() string {
	if p == nil {
		return ""
	}
	return p.added
}

// Revokes returns the ids tombstoned locally and not yet revoked remotely.
func (p *Pending) Revokes() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.revokes))
	for _, r := range p.revokes {
		ids = append(ids, r.credentialID)
	}
	return ids
}

// Manager adds, changes, resets, revokes and checks password credentials of a
// user. It mutates the User in memory only; callers persist it after a
// successful result. Calls for the same user must be serialized by the caller.
//
// The Stage variants leave remote revokes pending so that a caller can store
// the user first and then Commit, or Abort when the store fails.
type Manager struct {
	verifier Verifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		verifier: deps.Verifier,
		logger:   deps.Logger,
		now:      deps.Now,
		newID:    deps.NewID,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = id.New
	}
	return m
}

// AddPassword registers newSecret as an additional credential. Existing
// credentials are left untouched.
func (m *Manager) AddPassword(ctx context.Context, u *domain.User, newSecret, application string) (Result, error) {
	res, _, err := m.StageAddPassword(ctx, u, newSecret, application)
	return res, err
}

// ChangePassword replaces the active credential that oldSecret verifies
// against with a new one. Nothing changes unless both the old secret matches
// and the new credential is confirmed by the verification service.
func (m *Manager) ChangePassword(ctx context.Context, u *domain.User, oldSecret, newSecret, application string) (Result, error) {
	res, p, err := m.StageChangePassword(ctx, u, oldSecret, newSecret, application)
	m.Commit(ctx, u, p)
	return res, err
}

// ResetPassword adds newSecret and then tombstones every credential that was
// active before, whatever the verification service answers to the revokes.
func (m *Manager) ResetPassword(ctx context.Context, u *domain.User, newSecret, application string) (Result, error) {
	res, p, err := m.StageResetPassword(ctx, u, newSecret, application)
	m.Commit(ctx, u, p)
	return res, err
}

// RevokePasswords tombstones every active credential, optionally only those
// created by application, and returns how many were revoked.
func (m *Manager) RevokePasswords(ctx context.Context, u *domain.User, reason, application string) (int, error) {
	n, p, err := m.StageRevokePasswords(ctx, u, reason, application)
	m.Commit(ctx, u, p)
	return n, err
}

// StageAddPassword is AddPassword returning the added credential as pending.
func (m *Manager) StageAddPassword(ctx context.Context, u *domain.User, newSecret, application string) (Result, *Pending, error) {
	credID, res, err := m.add(ctx, u, newSecret, application)
	if err != nil || !res.OK() {
		return res, nil, err
	}
	return res, &Pending{added: credID}, nil
}

// StageChangePassword is ChangePassword with the remote revoke of the
// matched credential deferred to Commit.
func (m *Manager) StageChangePassword(ctx context.Context, u *domain.User, oldSecret, newSecret, application string) (Result, *Pending, error) {
	matched, ok := m.match(ctx, u, oldSecret)
	if !ok {
		m.logger.Info("old password did not match any active credential", "user_id", u.UserID, "application", application)
		return Result{Status: StatusDenied}, nil, nil
	}
	credID, res, err := m.add(ctx, u, newSecret, application)
	if err != nil || !res.OK() {
		return res, nil, err
	}
	p := &Pending{added: credID}
	if err := m.tombstone(u, p, matched.CredentialID, ReasonChanged); err != nil {
		m.Abort(ctx, u, p)
		return Result{}, nil, err
	}
	return Result{Status: StatusOK}, p, nil
}

// StageResetPassword is ResetPassword with the remote revokes of the
// previous credentials deferred to Commit.
func (m *Manager) StageResetPassword(ctx context.Context, u *domain.User, newSecret, application string) (Result, *Pending, error) {
	previous := u.Passwords.Active()
	credID, res, err := m.add(ctx, u, newSecret, application)
	if err != nil || !res.OK() {
		return res, nil, err
	}
	p := &Pending{added: credID}
	for _, rec := range previous {
		if err := m.tombstone(u, p, rec.CredentialID, ReasonReset); err != nil {
			m.Abort(ctx, u, p)
			return Result{}, nil, err
		}
	}
	return Result{Status: StatusOK}, p, nil
}

// StageRevokePasswords is RevokePasswords with every remote revoke deferred
// to Commit.
func (m *Manager) StageRevokePasswords(ctx context.Context, u *domain.User, reason, application string) (int, *Pending, error) {
	p := &Pending{}
	n := 0
	for _, rec := range u.Passwords.Active() {
		if application != "" && rec.Application != application {
			continue
		}
		if err := m.tombstone(u, p, rec.CredentialID, reason); err != nil {
			return n, nil, err
		}
		n++
	}
	return n, p, nil
}

// Commit sends the revokes a staged mutation deferred. Failures are logged
// and otherwise ignored; the local tombstones are authoritative.
func (m *Manager) Commit(ctx context.Context, u *domain.User, p *Pending) {
	if p == nil {
		return
	}
	for _, r := range p.revokes {
		m.discard(u, r.credentialID, m.verifier.Revoke(ctx, u.Ref(), r.credentialID, r.reason))
		m.logger.Info("revoked credential", "user_id", u.UserID, "credential_id", r.credentialID, "reason", r.reason)
	}
	p.revokes = nil
}

// Abort drops the deferred revokes of a staged mutation and disables the
// credential it added. The in-memory user must be discarded afterwards.
func (m *Manager) Abort(ctx context.Context, u *domain.User, p *Pending) {
	if p == nil {
		return
	}
	p.revokes = nil
	if p.added == "" {
		return
	}
	m.discard(u, p.added, m.verifier.Revoke(ctx, u.Ref(), p.added, ReasonOrphaned))
	m.logger.Warn("abandoned staged credential", "user_id", u.UserID, "credential_id", p.added)
	p.added = ""
}

// CheckPassword reports whether candidate verifies against any active
// credential. Locally revoked credentials are never sent to the verifier.
func (m *Manager) CheckPassword(ctx context.Context, u *domain.User, application, candidate string) Result {
	if _, ok := m.match(ctx, u, candidate); ok {
		return Result{Status: StatusOK}
	}
	m.logger.Info("password check failed", "user_id", u.UserID, "application", application)
	return Result{Status: StatusDenied}
}

// AddCredentials is the legacy combined operation. With an old secret it
// behaves as ChangePassword, without one as ResetPassword.
//
// Deprecated: use ChangePassword or ResetPassword.
func (m *Manager) AddCredentials(ctx context.Context, u *domain.User, oldSecret *string, newSecret, application string) (Result, error) {
	if oldSecret != nil {
		return m.ChangePassword(ctx, u, *oldSecret, newSecret, application)
	}
	return m.ResetPassword(ctx, u, newSecret, application)
}

// RevokeAllCredentials revokes every active credential of u.
//
// Deprecated: use RevokePasswords with an explicit reason.
func (m *Manager) RevokeAllCredentials(ctx context.Context, u *domain.User) error {
	_, err := m.RevokePasswords(ctx, u, ReasonRevokeAll, "")
	return err
}

func (m *Manager) add(ctx context.Context, u *domain.User, secret, application string) (string, Result, error) {
	credID := m.newID()
	out := m.verifier.Add(ctx, u.Ref(), credID, secret)
	if !out.OK() {
		m.logger.Warn("verification service did not add credential",
			"user_id", u.UserID, "credential_id", credID, "application", application,
			"outcome", out.Status.String(), "reason", out.Reason)
		return "", resultFrom(out), nil
	}
	rec := domain.CredentialRecord{
		CredentialID: credID,
		Application:  application,
		CreatedAt:    m.now().UTC(),
	}
	if err := u.Passwords.Append(rec); err != nil {
		// The remote credential has no local record; disable it again.
		m.discard(u, credID, m.verifier.Revoke(ctx, u.Ref(), credID, ReasonOrphaned))
		return "", Result{}, err
	}
	m.logger.Info("added credential", "user_id", u.UserID, "credential_id", credID, "application", application)
	return credID, Result{Status: StatusOK}, nil
}

// match returns the first active credential secret verifies against.
func (m *Manager) match(ctx context.Context, u *domain.User, secret string) (domain.CredentialRecord, bool) {
	for _, rec := range u.Passwords.Active() {
		if m.verifier.Verify(ctx, u.Ref(), rec.CredentialID, secret) {
			return rec, true
		}
	}
	return domain.CredentialRecord{}, false
}

// tombstone marks credID revoked on u and queues its remote revoke on p.
func (m *Manager) tombstone(u *domain.User, p *Pending, credID, reason string) error {
	if err := u.Passwords.Revoke(credID, reason, m.now()); err != nil {
		return fmt.Errorf("tombstone credential: %w: %w", domain.ErrInvariantViolation, err)
	}
	p.revokes = append(p.revokes, revocation{credentialID: credID, reason: reason})
	return nil
}

// discard inspects a revoke outcome the manager has decided not to act on.
func (m *Manager) discard(u *domain.User, credID string, out domain.Outcome) {
	if err := out.Err(); err != nil {
		m.logger.Warn("remote revoke failed, local tombstone is authoritative",
			"user_id", u.UserID, "credential_id", credID, "err", err)
	}
}
