package models

// User is the authenticated account
type User struct {
	ID        int        `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// Registration is the sign-up payload
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the response of the form login endpoint
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserSettings is the profile view of the settings page
type UserSettings struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileUpdate changes any subset of the profile; nil fields are left untouched
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// MessageResponse is the generic {success, message} write acknowledgement
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterResponse acknowledges a new account
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
}
