package user

// ChangeEmailRequest updates the account email. The current password is
// required to confirm the change.
type ChangeEmailRequest struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
}

// ChangePasswordRequest rotates the account password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Response is a minimal success envelope for mutations with no payload.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
