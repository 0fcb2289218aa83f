package handlers

import "testing"

func TestAdminOrderFilter(t *testing.T) {
	filter, err := adminOrderFilter("", "")
	if err != nil {
		t.Fatalf("adminOrderFilter failed: %v", err)
	}
	if len(filter) != 0 {
		t.Fatalf("empty params must build an empty filter, got %v", filter)
	}

	filter, err = adminOrderFilter(StatusShipped, "cod")
	if err != nil {
		t.Fatalf("adminOrderFilter failed: %v", err)
	}
	if filter["status"] != StatusShipped {
		t.Fatalf("status = %v, want %q", filter["status"], StatusShipped)
	}
	if filter["paymentMethod"] != "cod" {
		t.Fatalf("paymentMethod = %v, want cod", filter["paymentMethod"])
	}

	filter, err = adminOrderFilter("", "upi")
	if err != nil {
		t.Fatalf("adminOrderFilter failed: %v", err)
	}
	if _, ok := filter["status"]; ok {
		t.Fatal("empty status must not constrain the filter")
	}
	if filter["paymentMethod"] != "upi" {
		t.Fatalf("paymentMethod = %v, want upi", filter["paymentMethod"])
	}
}

func TestAdminOrderFilterRejectsUnknownValues(t *testing.T) {
	if _, err := adminOrderFilter("cancelled", ""); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := adminOrderFilter("", "card"); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
}
