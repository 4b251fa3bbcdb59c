package auth

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/maxviazov/library-service/internal/config"
)

const (
	ScopeReadBooks   = "read:books"
	ScopeWriteBooks  = "write:books"
	ScopeDeleteBooks = "delete:books"
)

// User is an account as seen by the rest of the service; the hash never leaves this package.
type User struct {
	Username string
	Role     string
	Scopes   []string
}

// HasScope reports whether the user was granted scope.
func (u User) HasScope(scope string) bool { return slices.Contains(u.Scopes, scope) }

type account struct {
	User
	hash []byte
}

// Directory is the static user list loaded from config.
type Directory struct {
	users map[string]account
	// dummy is compared against when the username is unknown so both paths cost a bcrypt round.
	dummy []byte
}

// NewDirectory builds a directory, hashing plaintext passwords with the given bcrypt cost.
func NewDirectory(users []config.UserConfig, cost int) (*Directory, error) {
	d := &Directory{users: make(map[string]account, len(users))}
	for _, u := range users {
		name := strings.TrimSpace(u.Username)
		if _, dup := d.users[name]; dup {
			return nil, fmt.Errorf("duplicate user %q", name)
		}
		hash := []byte(u.PasswordHash)
		if len(hash) == 0 {
			h, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %q: %w", name, err)
			}
			hash = h
		} else if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("password hash for %q: %w", name, err)
		}
		role := u.Role
		if role == "" {
			role = "user"
		}
		d.users[name] = account{
			User: User{Username: name, Role: role, Scopes: slices.Clone(u.Scopes)},
			hash: hash,
		}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	d.dummy = dummy
	return d, nil
}

// Authenticate checks a username/password pair.
func (d *Directory) Authenticate(username, password string) (User, error) {
	acc, ok := d.users[strings.TrimSpace(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(d.dummy, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return acc.User, nil
}

// Lookup returns the user by name; refresh uses it so scope changes apply on the next access token.
func (d *Directory) Lookup(username string) (User, bool) {
	acc, ok := d.users[username]
	return acc.User, ok
}
