package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store собирает все репозитории поверх одного *gorm.DB — обычного
// соединения или транзакции.
type Store struct {
	db *gorm.DB

	Sites         SiteRepository
	Rooms         RoomRepository
	Users         UserRepository
	Tariffs       TariffRepository
	Reservations  ReservationRepository
	Notifications NotificationRepository
	Events        EventRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Sites:         NewGormSiteRepository(db),
		Rooms:         NewGormRoomRepository(db),
		Users:         NewGormUserRepository(db),
		Tariffs:       NewGormTariffRepository(db),
		Reservations:  NewGormReservationRepository(db),
		Notifications: NewGormNotificationRepository(db),
		Events:        NewGormEventRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction выполняет fn в транзакции; внутри fn все репозитории
// работают через tx. Ошибка из fn откатывает транзакцию.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
