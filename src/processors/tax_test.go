package processors

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateTax(t *testing.T) {
	tests := []struct {
		name string
		net  string
		want string
	}{
		{"zero net", "0", "0"},
		{"negative net", "-1234.56", "0"},
		{"small gain lowest bracket", "1000", "190"},
		{"exactly first boundary", "6000", "1140"},
		{"just over first boundary", "6000.01", "1260"},
		{"exactly second boundary", "50000", "10500"},
		{"third bracket", "100000", "23000"},
		{"exactly third boundary", "200000", "46000"},
		{"top bracket", "200001", "54000.27"},
		{"half cent rounds to even", "6030.5", "1266.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := decimal.RequireFromString(tt.net)
			want := decimal.RequireFromString(tt.want)
			if got := EstimateTax(net); !got.Equal(want) {
				t.Errorf("EstimateTax(%s) = %s, want %s", tt.net, got, want)
			}
		})
	}
}

func TestEstimateTaxIsFlatNotMarginal(t *testing.T) {
	// The bracket rate applies to the whole net amount, so crossing a
	// boundary can raise the estimate by more than the extra net.
	below := EstimateTax(decimal.NewFromInt(6000))
	above := EstimateTax(decimal.RequireFromString("6000.01"))
	if !above.GreaterThan(below) {
		t.Errorf("expected flat-rate jump across boundary, got %s then %s", below, above)
	}
}
