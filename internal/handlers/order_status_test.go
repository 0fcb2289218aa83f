package handlers

import "testing"

func TestIsValidOrderStatus(t *testing.T) {
	for _, status := range []string{
		StatusPending, StatusConfirmed, StatusShipped, StatusOutForDelivery, StatusDelivered,
	} {
		if !isValidOrderStatus(status) {
			t.Fatalf("expected %q to be valid", status)
		}
	}

	for _, status := range []string{"", "cancelled", "PENDING", "done"} {
		if isValidOrderStatus(status) {
			t.Fatalf("expected %q to be invalid", status)
		}
	}
}

func TestCanTransitionStatusForwardOnly(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDelivered, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusPending, StatusPending, false},
		{StatusPending, "unknown", false},
		{"unknown", StatusConfirmed, false},
	}

	for _, tc := range cases {
		if got := canTransitionStatus(tc.from, tc.to); got != tc.want {
			t.Fatalf("canTransitionStatus(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
