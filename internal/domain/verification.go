package domain

// VerificationTypeRecovery is the verification type of a password recovery code.
const VerificationTypeRecovery = "password_recovery"

// UserVerification is a pending one-time code for a user.
// PK: user_id, SK: type. Only a bcrypt hash of the code is stored.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type UserVerification struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Type      string `json:"type" dynamodbav:"type"`
	CodeHash  string `json:"-" dynamodbav:"code_hash"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the code is past its expiry at unix time now.
func (v *UserVerification) Expired(now int64) bool { return v.ExpiresAt <= now }
