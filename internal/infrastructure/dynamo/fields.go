package dynamo

// DynamoDB attribute names used in key and update expressions.
const (
	fieldUserID    = "user_id"
	fieldEmail     = "email"
	fieldPasswords = "passwords"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
	fieldType      = "type"
	fieldAttempts  = "attempts"
	fieldExpiresAt = "expires_at"

	indexEmail = "email-index"
)
