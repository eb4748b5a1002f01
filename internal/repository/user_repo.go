package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepo struct {
	handle
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{handle{db: db}}
}

func (r *userRepo) WithTx(tx *gorm.DB) UserRepository {
	return &userRepo{r.bind(tx)}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return Classify(r.conn(ctx).Create(user).Error, "user not found")
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "user not found")
	}
	return &user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, Classify(err, "user not found")
	}
	return &user, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&model.User{}).Count(&n).Error
	return n, Classify(err, "")
}
