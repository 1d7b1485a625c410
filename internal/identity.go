package internal

import (
	"unicode"
	"unicode/utf8"
)

// Identity is what the chat surface knows about the signed-in user
type Identity struct {
	Username string
	Role     string
	Greeting string
}

// Initialize reads the identity token from store. It returns ErrLoginRequired
// when no username (or an empty one) is stored; callers send the user to the
// login flow in that case.
func Initialize(store ItemReader) (*Identity, error) {
	username, ok, err := store.GetItem(KeyUsername)
	if err != nil {
		return nil, err
	}
	if !ok || username == "" {
		return nil, ErrLoginRequired
	}

	role, _, err := store.GetItem(KeyRole)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Username: username,
		Role:     role,
		Greeting: Capitalize(username),
	}, nil
}

// Capitalize upper-cases the first character of s and leaves the rest unchanged
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
