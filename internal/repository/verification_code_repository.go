package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/identity-service/internal/domain"
)

var ErrVerificationCodeNotFound = errors.New("verification code not found")

type VerificationCodeRepository interface {
	Upsert(ctx context.Context, code *domain.VerificationCode) error
	Find(ctx context.Context, key string, purpose domain.CodePurpose) (*domain.VerificationCode, error)
	Delete(ctx context.Context, key string, purpose domain.CodePurpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CodeClaim identifies a live code that must be consumed in the same
// transaction as the account write it authorizes.
type CodeClaim struct {
	Key     string
	Purpose domain.CodePurpose
	Code    string
	Now     time.Time
}

type GormVerificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

// Upsert replaces any code already stored for (key, purpose).
func (r *GormVerificationCodeRepository) Upsert(ctx context.Context, code *domain.VerificationCode) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code_key"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "updated_at"}),
	}).Create(code).Error
}

func (r *GormVerificationCodeRepository) Find(ctx context.Context, key string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	var code domain.VerificationCode
	err := r.db.WithContext(ctx).Where("code_key = ? AND purpose = ?", key, purpose).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

func (r *GormVerificationCodeRepository) Delete(ctx context.Context, key string, purpose domain.CodePurpose) error {
	return r.db.WithContext(ctx).
		Where("code_key = ? AND purpose = ?", key, purpose).
		Delete(&domain.VerificationCode{}).Error
}

func (r *GormVerificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.VerificationCode{})
	return res.RowsAffected, res.Error
}

// consumeCode deletes the claimed code only while it is still live and
// matches. It must run inside the caller's transaction.
func consumeCode(tx *gorm.DB, claim CodeClaim) error {
	res := tx.Where("code_key = ? AND purpose = ? AND code = ? AND expires_at > ?", claim.Key, claim.Purpose, claim.Code, claim.Now.UTC()).
		Delete(&domain.VerificationCode{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVerificationCodeNotFound
	}
	return nil
}
