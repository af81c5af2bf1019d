package schema

// UserRefreshTokenTable represents the 'users.refreshtoken' table
type UserRefreshTokenTable struct {
	Table     string
	TokenHash string
	UserID    string
	CreatedAt string
	ExpiresAt string
}

// UserRefreshToken is the schema definition for users.refreshtoken
var UserRefreshToken = UserRefreshTokenTable{
	Table:     "users.refreshtoken",
	TokenHash: "tokenhash",
	UserID:    "userid",
	CreatedAt: "createdat",
	ExpiresAt: "expiresat",
}

// Columns returns all standard column names
func (t UserRefreshTokenTable) Columns() []string {
	return []string{t.TokenHash, t.UserID, t.CreatedAt, t.ExpiresAt}
}
