package domain

import "fmt"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is supplied by the web layer on every request. It is trusted as is.
type Identity struct {
	SessionCartID string
	UserID        string
	Role          string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

// CartKey identifies the cart owner: the user when signed in, otherwise the session.
func (i Identity) CartKey() (string, error) {
	if i.SessionCartID == "" {
		return "", ErrSessionMissing
	}
	if i.Authenticated() {
		return UserCartKey(i.UserID), nil
	}
	return fmt.Sprintf("session:%s", i.SessionCartID), nil
}

// UserCartKey is the owner key of a signed-in user's cart.
func UserCartKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
