package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from, to ReservationState
		ok       bool
	}{
		{ReservationStatePending, ReservationStateConfirmed, true},
		{ReservationStatePending, ReservationStateCancelled, true},
		{ReservationStatePending, ReservationStateInProgress, false},
		{ReservationStatePending, ReservationStateNoShow, false},
		{ReservationStateConfirmed, ReservationStateInProgress, true},
		{ReservationStateConfirmed, ReservationStateCancelled, true},
		{ReservationStateConfirmed, ReservationStateNoShow, true},
		{ReservationStateInProgress, ReservationStateCompleted, true},
		{ReservationStateInProgress, ReservationStateCancelled, true},
		{ReservationStateInProgress, ReservationStateNoShow, false},
		{ReservationStateCompleted, ReservationStateCancelled, false},
		{ReservationStateCancelled, ReservationStateConfirmed, false},
		{ReservationStateNoShow, ReservationStateCancelled, false},
		// повтор терминального перехода
		{ReservationStateCancelled, ReservationStateCancelled, true},
		{ReservationStateNoShow, ReservationStateNoShow, true},
		{ReservationStateConfirmed, ReservationStateConfirmed, false},
	}

	for _, tc := range cases {
		err := CheckTransition(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.True(t, errors.Is(err, ErrIllegalTransition), "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range AllReservationStates {
		_, hasNext := transitions[s]
		assert.Equal(t, !hasNext, s.IsTerminal(), string(s))
	}
}
