package auth

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrInvalidCredentials is returned for a malformed login or registration.
var ErrInvalidCredentials = eris.New("auth: invalid credentials")

// Mode selects between signing in and creating an account.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// LoginRequest is the form submitted by the identity provider.
type LoginRequest struct {
	Mode     Mode   `json:"mode"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login authenticates req. Credentials are not checked against any account
// store: every well-formed request succeeds. The display name is the
// registration name, or the local part of the email on login.
func Login(req LoginRequest) (User, error) {
	u, err := ForEmail(req.Email)
	if err != nil {
		return User{}, err
	}
	if req.Password == "" {
		return User{}, eris.Wrap(ErrInvalidCredentials, "password required")
	}

	switch req.Mode {
	case ModeLogin, "":
	case ModeRegister:
		u.Name = strings.TrimSpace(req.Name)
		if u.Name == "" {
			return User{}, eris.Wrap(ErrInvalidCredentials, "name required to register")
		}
	default:
		return User{}, eris.Wrapf(ErrInvalidCredentials, "unknown mode %q", req.Mode)
	}
	return u, nil
}

// ForEmail returns the user identified by email, named after the local part
// of the address. Operator tooling uses it to act on behalf of a user.
func ForEmail(email string) (User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return User{}, eris.Wrapf(ErrInvalidCredentials, "email %q", email)
	}
	normalized := strings.ToLower(addr.Address)
	local, _, _ := strings.Cut(normalized, "@")
	return User{
		ID:    UserID(normalized),
		Name:  local,
		Email: normalized,
	}, nil
}

// UserID derives the stable user id of an email address.
func UserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}
