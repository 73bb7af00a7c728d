package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Admin is the single credential pair allowed to open the dashboard
type Admin struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

func (a *Admin) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashed)
	return nil
}

func (a *Admin) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(candidate))
	return err == nil
}

// Matches checks a login attempt. Email comparison ignores case.
func (a *Admin) Matches(email, password string) bool {
	if !strings.EqualFold(strings.TrimSpace(email), a.Email) {
		return false
	}
	return a.ComparePassword(password)
}
