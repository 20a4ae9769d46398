package models

// AuthUser is the identity extracted from a verified token: a stable user id
// plus the display name and email the booking record carries.
type AuthUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
