package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrUnknownRobot,
		ErrAlreadyMoved,
		ErrAlreadyActed,
		ErrOutOfRange,
		ErrBlocked,
		ErrBadTarget,
		ErrHandsFull,
		ErrHandsEmpty,
		ErrNoMoney,
		ErrNoMatch,
		ErrNotAllowed,
		ErrConflict,
		ErrRateLimit,
		ErrStale,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}
