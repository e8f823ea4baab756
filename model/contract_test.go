package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRentalDays(t *testing.T) {
	day := func(s string) time.Time {
		tm, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad date %s: %v", s, err)
		}
		return tm
	}

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"four days", day("2024-06-01"), day("2024-06-05"), 4},
		{"partial day rounds up", day("2024-06-01"), day("2024-06-02").Add(3 * time.Hour), 2},
		{"same day", day("2024-06-01"), day("2024-06-01"), 1},
		{"reversed", day("2024-06-05"), day("2024-06-01"), 1},
		{"missing dates", time.Time{}, day("2024-06-01"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RentalDays(tt.from, tt.to); got != tt.want {
				t.Errorf("Expected %d days, got %d", tt.want, got)
			}
		})
	}
}

func TestContractItemsFromCart(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := ContractItemsFromCart([]CartItem{{
		SKU:        "tent-4p",
		Name:       "Tent",
		Quantity:   1,
		RentalFrom: from,
		RentalTo:   from.AddDate(0, 0, 4),
		UnitPrice:  decimal.NewFromInt(100),
		RowTotal:   decimal.NewFromInt(400),
	}})

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Days != 4 {
		t.Errorf("Expected 4 days, got %d", items[0].Days)
	}
	if !items[0].RowTotal.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected row total 400, got %s", items[0].RowTotal)
	}
}

func TestFinalizedReplacesDraftIdentity(t *testing.T) {
	draft := RentalContractData{
		ContractNumber: DraftPrefix + "abc123",
		Owner:          ContractParty{Name: "TBD"},
		Renter:         ContractParty{Name: "Renter", Email: "renter@example.com"},
		Items:          []ContractItem{{SKU: "a"}},
	}
	if !draft.IsDraft() {
		t.Fatal("Expected draft contract")
	}

	final := draft.Finalized("000000042", ContractParty{Name: "Owner", Email: "owner@example.com"})

	if final.IsDraft() {
		t.Error("Expected finalized contract not to be a draft")
	}
	if final.ContractNumber != "000000042" || final.OrderNumber != "000000042" {
		t.Errorf("Expected order number to replace draft number, got %s/%s", final.ContractNumber, final.OrderNumber)
	}
	if final.Owner.Email != "owner@example.com" {
		t.Errorf("Expected owner identity, got %s", final.Owner.Email)
	}
	if final.Renter.Email != "renter@example.com" {
		t.Error("Expected renter to be kept")
	}
	if draft.ContractNumber != DraftPrefix+"abc123" {
		t.Error("Expected draft to be left untouched")
	}
}
