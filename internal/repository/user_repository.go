package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	// UpsertByPhone находит пользователя по телефону или создаёт нового.
	UpsertByPhone(ctx context.Context, displayName, contactPhone string) (*model.User, error)
	// RegisterTelegram создаёт пользователя бота или обновляет его контакты.
	RegisterTelegram(ctx context.Context, telegramID int64, displayName, contactPhone string) (*model.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// NormalizePhone оставляет в номере только цифры.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	n := NormalizePhone(phone)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var u model.User
	// Try normalized first, then raw (in case old data is not normalized).
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Where("contact_phone = ?", n)
	if strings.TrimSpace(phone) != n {
		q = q.Or("contact_phone = ?", strings.TrimSpace(phone))
	}
	if err := q.First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) UpsertByPhone(ctx context.Context, displayName, contactPhone string) (*model.User, error) {
	u, err := r.FindByPhone(ctx, contactPhone)
	if err == nil {
		if displayName != "" && u.DisplayName == "" {
			if err := r.db.WithContext(ctx).Model(u).Update("display_name", displayName).Error; err != nil {
				return nil, err
			}
		}
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	n := NormalizePhone(contactPhone)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}
	u = &model.User{DisplayName: displayName, ContactPhone: n}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *GormUserRepository) RegisterTelegram(ctx context.Context, telegramID int64, displayName, contactPhone string) (*model.User, error) {
	contactPhone = NormalizePhone(contactPhone)

	u, err := r.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		id := telegramID
		u = &model.User{TelegramID: &id, DisplayName: displayName, ContactPhone: contactPhone}
		if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
			return nil, err
		}
		return u, nil
	}

	// Пустые значения не затирают сохранённые.
	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
		u.DisplayName = displayName
	}
	if contactPhone != "" {
		updates["contact_phone"] = contactPhone
		u.ContactPhone = contactPhone
	}
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return u, nil
}
