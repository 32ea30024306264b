package chain

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// weiDecimals is the exponent between the native unit and wei.
const weiDecimals = 18

var amountCtx = apd.BaseContext.WithPrecision(50)

// ParseUnits converts a human-readable native-unit amount such as "0.001"
// into exact wei. The conversion is decimal, never float, so configured
// stake amounts round-trip without drift. Fractions finer than 18 decimal
// places are rejected rather than silently truncated.
func ParseUnits(amount string) (*big.Int, error) {
	dec, _, err := apd.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if dec.Negative {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}

	scaled := new(apd.Decimal)
	if _, err := amountCtx.Mul(scaled, dec, apd.New(1, weiDecimals)); err != nil {
		return nil, fmt.Errorf("scale amount %q: %w", amount, err)
	}

	wei := new(apd.Decimal)
	res, err := amountCtx.RoundToIntegralExact(wei, scaled)
	if err != nil {
		return nil, fmt.Errorf("round amount %q: %w", amount, err)
	}
	if res.Inexact() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, weiDecimals)
	}

	out := new(big.Int)
	if _, ok := out.SetString(wei.Text('f'), 10); !ok {
		return nil, fmt.Errorf("amount %q did not convert to an integer wei value", amount)
	}
	return out, nil
}

// FormatUnits renders a wei amount as a native-unit decimal string for logs
// and diagnostics output.
func FormatUnits(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	dec := new(apd.Decimal)
	dec.Coeff.Set(new(apd.BigInt).SetMathBigInt(wei))
	dec.Exponent = -weiDecimals
	reduced := new(apd.Decimal)
	if _, _, err := amountCtx.Reduce(reduced, dec); err != nil {
		return dec.Text('f')
	}
	return reduced.Text('f')
}
