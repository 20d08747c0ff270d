package cmd

import "testing"

func TestWalltimeHours(t *testing.T) {
	defer func() { subFlags.hours, subFlags.days, subFlags.weeks = 0, 0, 0 }()

	subFlags.hours, subFlags.days, subFlags.weeks = 5, 0, 0
	if got := walltimeHours(); got != 5 {
		t.Errorf("hours=5 -> %d; want 5", got)
	}

	subFlags.hours, subFlags.days, subFlags.weeks = 0, 3, 0
	if got := walltimeHours(); got != 72 {
		t.Errorf("days=3 -> %d; want 72", got)
	}

	subFlags.hours, subFlags.days, subFlags.weeks = 0, 0, 1
	if got := walltimeHours(); got != 168 {
		t.Errorf("weeks=1 -> %d; want 168", got)
	}
}
