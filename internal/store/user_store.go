package store

import (
	"context"
	"time"

	"casetrack/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	return u.db.WithContext(ctx).Create(usr).Error
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var usr domain.User
	if err := u.db.WithContext(ctx).First(&usr, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &usr, nil
}

// GetByIDForUpdate row-locks the user. Locking the target caseworker serializes
// concurrent workload checks against that worker for the rest of the transaction.
func (u *UserStore) GetByIDForUpdate(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var usr domain.User
	if err := forUpdate(u.db.WithContext(ctx)).First(&usr, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &usr, nil
}

func (u *UserStore) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := u.db.WithContext(ctx).Order("created_at asc, id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UserStore) SetActive(ctx context.Context, id domain.UserID, active bool) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
