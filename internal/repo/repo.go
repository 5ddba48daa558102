package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrProductInUse       = errors.New("product is referenced by order items")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExist   = errors.New("user already exist")
	ErrTokenRevoked       = errors.New("token expired or revoked")
)

type GormRepo struct {
	DB *gorm.DB
}
