package indicator

import (
	"math"
	"time"
)

// Row is one point-in-time slice of market data: the candle plus every
// computed indicator column, keyed by raw column name (RSI_14, MACDs_12_26_9,
// close, ...). Rows are immutable once produced and consumed in ascending
// date order.
type Row struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Value returns the raw column value. A missing key or a NaN value both
// count as absent.
func (r Row) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
