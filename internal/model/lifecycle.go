package model

import (
	"errors"
	"fmt"
)

// Состояния брони. Терминальные: completed, cancelled, no_show.
type ReservationState string

const (
	ReservationStatePending    ReservationState = "pending"
	ReservationStateConfirmed  ReservationState = "confirmed"
	ReservationStateInProgress ReservationState = "in_progress"
	ReservationStateCompleted  ReservationState = "completed"
	ReservationStateCancelled  ReservationState = "cancelled"
	ReservationStateNoShow     ReservationState = "no_show"
)

var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[ReservationState][]ReservationState{
	ReservationStatePending:    {ReservationStateConfirmed, ReservationStateCancelled},
	ReservationStateConfirmed:  {ReservationStateInProgress, ReservationStateCancelled, ReservationStateNoShow},
	ReservationStateInProgress: {ReservationStateCompleted, ReservationStateCancelled},
}

// AllReservationStates — в порядке жизненного цикла.
var AllReservationStates = []ReservationState{
	ReservationStatePending,
	ReservationStateConfirmed,
	ReservationStateInProgress,
	ReservationStateCompleted,
	ReservationStateCancelled,
	ReservationStateNoShow,
}

func (s ReservationState) Valid() bool {
	for _, st := range AllReservationStates {
		if st == s {
			return true
		}
	}
	return false
}

func (s ReservationState) IsTerminal() bool {
	switch s {
	case ReservationStateCompleted, ReservationStateCancelled, ReservationStateNoShow:
		return true
	}
	return false
}

// CanTransition сообщает, разрешён ли переход from -> to.
func CanTransition(from, to ReservationState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition возвращает nil для разрешённого перехода.
// Повтор терминального перехода (cancelled -> cancelled) тоже допустим:
// такие операции идемпотентны.
func CheckTransition(from, to ReservationState) error {
	if from == to && to.IsTerminal() {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// BlockingStates — состояния, которые всегда занимают комнату.
// pending блокирует только в пределах окна ожидания оплаты.
var BlockingStates = []ReservationState{
	ReservationStateConfirmed,
	ReservationStateInProgress,
	ReservationStateCompleted,
}
