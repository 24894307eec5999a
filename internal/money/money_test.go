package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRejectsNegative(t *testing.T) {
	if _, err := Parse("-10.00"); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestParseRounds(t *testing.T) {
	d, err := Parse("10.005")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "10.01" {
		t.Fatalf("expected 10.01, got %s", d.String())
	}
}

func TestApplyRateTwoPointFivePercent(t *testing.T) {
	gross := MustParse("100.00")
	rate := decimal.NewFromFloat(0.025)

	fee := ApplyRate(gross, rate)
	if fee.String() != "2.5" && fee.String() != "2.50" {
		t.Fatalf("expected fee 2.50, got %s", fee.String())
	}
	net := gross.Sub(fee)
	if !net.Equal(MustParse("97.50")) {
		t.Fatalf("expected net 97.50, got %s", net.String())
	}
}

func TestRepeatedSmallAmountsDoNotDrift(t *testing.T) {
	unit := MustParse("0.01")
	total := Zero
	for i := 0; i < 10_000; i++ {
		total = total.Add(unit)
	}
	if !total.Equal(MustParse("100.00")) {
		t.Fatalf("expected 100.00 after 10000 deposits of 0.01, got %s", total.String())
	}
}
