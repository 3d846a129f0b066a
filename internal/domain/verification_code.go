package domain

import "time"

type CodePurpose string

const (
	CodePurposeRegister      CodePurpose = "register"
	CodePurposePasswordReset CodePurpose = "password_reset"
)

// VerificationCode holds at most one live code per (Key, Purpose).
// Key is the normalized email address the code was sent to.
type VerificationCode struct {
	Key       string      `gorm:"primaryKey;column:code_key;size:255" json:"key"`
	Purpose   CodePurpose `gorm:"primaryKey;size:32" json:"purpose"`
	Code      string      `gorm:"size:16;not null" json:"-"`
	ExpiresAt time.Time   `gorm:"not null;index:idx_verification_codes_expires_at" json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (c *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
