package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

var (
	ErrInvalidTelegramID = errors.New("invalid telegram id")
	ErrUserNotFound      = errors.New("user not found")
)

// ValidateTelegramUser проверяет идентификатор и достаёт пользователя,
// зарегистрированного через бота.
func ValidateTelegramUser(ctx context.Context, users repository.UserRepository, telegramID int64) (*model.User, error) {
	if telegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}

	u, err := users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
