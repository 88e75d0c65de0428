package model

// Roles stored in users.role.  Teachers issue and void tokens and
// manage the shop; students claim tokens and purchase items.
const (
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted because these structs
// are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – TEACHER or STUDENT.
//  IsActive     – whether the account is active.
//  CreatedAt    – unix seconds of creation.
//  UpdatedAt    – unix seconds of last update.
type User struct {
	ID           uint64 // users.id
	Username     string // users.username
	PasswordHash string // users.password_hash
	Role         string // users.role
	IsActive     bool   // users.is_active
	CreatedAt    int64  // users.created_at
	UpdatedAt    int64  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and carries expiry and revocation
// metadata.  The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – unix seconds when the token expires.
//  RevokedAt – unix seconds of revocation, 0 while active.
//  CreatedAt – unix seconds of creation.
type RefreshToken struct {
	ID        uint64 // refresh_tokens.id
	UserID    uint64 // refresh_tokens.user_id
	TokenHash string // refresh_tokens.token_hash
	ExpiresAt int64  // refresh_tokens.expires_at
	RevokedAt int64  // refresh_tokens.revoked_at (0 = not revoked)
	CreatedAt int64  // refresh_tokens.created_at
}
