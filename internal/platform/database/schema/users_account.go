package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                     string
	ID                        string
	Name                      string
	Username                  string
	Email                     string
	Password                  string
	Role                      string
	IsVerified                string
	VerificationToken         string
	VerificationTokenExpires  string
	ResetPasswordToken        string
	ResetPasswordTokenExpires string
	LastLoginAt               string
	CreatedAt                 string
	UpdatedAt                 string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                     "users.account",
	ID:                        "id",
	Name:                      "name",
	Username:                  "username",
	Email:                     "email",
	Password:                  "passwordhash",
	Role:                      "role",
	IsVerified:                "isverified",
	VerificationToken:         "verificationtoken",
	VerificationTokenExpires:  "verificationtokenexpires",
	ResetPasswordToken:        "resetpasswordtoken",
	ResetPasswordTokenExpires: "resetpasswordtokenexpires",
	LastLoginAt:               "lastloginat",
	CreatedAt:                 "createdat",
	UpdatedAt:                 "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Name, t.Username, t.Email, t.Password, t.Role, t.IsVerified,
		t.VerificationToken, t.VerificationTokenExpires,
		t.ResetPasswordToken, t.ResetPasswordTokenExpires,
		t.LastLoginAt, t.CreatedAt, t.UpdatedAt,
	}
}
