package service

import (
	"encoding/json"
	"math/big"

	"oraclewatcher/internal/decimal"
)

// decimalToFloat renders a Decimal as a float64 for deviation-percentage
// comparison. Persistence always goes through Decimal.String, never through
// this lossy conversion.
func decimalToFloat(d decimal.Decimal) float64 {
	magnitude, neg := d.Unpack()
	f := new(big.Float).SetInt(magnitude)
	v, _ := f.Float64()
	if neg {
		v = -v
	}
	return v
}

func marshalEvent(e any) (json.RawMessage, error) {
	return json.Marshal(e)
}
