package processors

import "github.com/shopspring/decimal"

// Savings-income brackets, upper bound inclusive. The selected rate is
// applied flat to the whole net amount rather than marginally per bracket;
// downstream consumers expect this documented simplification.
var taxBrackets = []struct {
	upperBound decimal.Decimal
	rate       decimal.Decimal
}{
	{decimal.NewFromInt(6000), decimal.NewFromFloat(0.19)},
	{decimal.NewFromInt(50000), decimal.NewFromFloat(0.21)},
	{decimal.NewFromInt(200000), decimal.NewFromFloat(0.23)},
}

var topRate = decimal.NewFromFloat(0.27)

// EstimateTax returns the estimated liability on a net realized position,
// rounded to 2 decimal places (half to even). Net losses are not banked or
// carried forward; a non-positive net yields zero.
func EstimateTax(net decimal.Decimal) decimal.Decimal {
	if net.Sign() <= 0 {
		return decimal.Zero
	}
	rate := topRate
	for _, bracket := range taxBrackets {
		if net.LessThanOrEqual(bracket.upperBound) {
			rate = bracket.rate
			break
		}
	}
	return net.Mul(rate).RoundBank(2)
}
