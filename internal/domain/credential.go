package domain

import (
	"fmt"
	"time"
)

// CredentialRecord is local metadata for one secret registered with the
// verification service. It never carries the secret itself.
type CredentialRecord struct {
	CredentialID  string     `json:"credential_id" dynamodbav:"credential_id"`
	Application   string     `json:"application" dynamodbav:"application"`
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"created_at"`
	Revoked       bool       `json:"revoked" dynamodbav:"revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty" dynamodbav:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty" dynamodbav:"revoked_reason,omitempty"`
}

// Credentials is the ordered credential collection of a user. Records are
// never removed; revocation turns a record into a tombstone.
type Credentials []CredentialRecord

// Active returns the non-revoked records in insertion order.
func (c Credentials) Active() []CredentialRecord {
	var out []CredentialRecord
	for _, rec := range c {
		if !rec.Revoked {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns the record with the given id.
func (c Credentials) Get(credentialID string) (CredentialRecord, bool) {
	for _, rec := range c {
		if rec.CredentialID == credentialID {
			return rec, true
		}
	}
	return CredentialRecord{}, false
}

// Append adds a fresh, non-revoked record.
func (c *Credentials) Append(rec CredentialRecord) error {
	if rec.CredentialID == "" {
		return fmt.Errorf("empty credential id: %w", ErrInvariantViolation)
	}
	if rec.Revoked {
		return fmt.Errorf("credential %s appended as revoked: %w", rec.CredentialID, ErrInvariantViolation)
	}
	if _, ok := c.Get(rec.CredentialID); ok {
		return fmt.Errorf("credential %s already present: %w", rec.CredentialID, ErrInvariantViolation)
	}
	*c = append(*c, rec)
	return nil
}

// Revoke tombstones the record with the given id. Revoking an already revoked
// record is a no-op and keeps the original timestamp and reason.
func (c Credentials) Revoke(credentialID, reason string, at time.Time) error {
	for i := range c {
		if c[i].CredentialID != credentialID {
			continue
		}
		if c[i].Revoked {
			return nil
		}
		at = at.UTC()
		c[i].Revoked = true
		c[i].RevokedAt = &at
		c[i].RevokedReason = reason
		return nil
	}
	return fmt.Errorf("credential %s: %w", credentialID, ErrNotFound)
}
