package indicator

import "strings"

// Symbolic indicator names accepted in strategy conditions and alerts.
const (
	NameRSI           = "RSI"
	NameMACD          = "MACD"
	NameMACDSignal    = "MACD_SIGNAL"
	NameMACDHistogram = "MACD_HISTOGRAM"
	NameStochasticK   = "STOCHASTIC_K"
	NameStochasticD   = "STOCHASTIC_D"
	NameATR           = "ATR"
	NameBBUpper       = "BB_UPPER"
	NameBBMiddle      = "BB_MIDDLE"
	NameBBLower       = "BB_LOWER"
	NameOBV           = "OBV"
	NameClose         = "CLOSE"
	NameOpen          = "OPEN"
	NameHigh          = "HIGH"
	NameLow           = "LOW"
	NameVolume        = "VOLUME"
	NameMM9           = "MM9"
	NameMM21          = "MM21"
)

// columns maps the symbolic indicator name to the raw column produced by the
// indicator service. Every evaluator in the system resolves through this one
// table; lookups are case-insensitive on the symbolic name.
var columns = map[string]string{
	NameRSI:           "RSI_14",
	NameMACD:          "MACD_12_26_9",
	NameMACDSignal:    "MACDs_12_26_9",
	NameMACDHistogram: "MACDh_12_26_9",
	NameStochasticK:   "STOCHk_14_3_3",
	NameStochasticD:   "STOCHd_14_3_3",
	NameATR:           "ATRr_14",
	NameBBUpper:       "BBU_20_2.0",
	NameBBMiddle:      "BBM_20_2.0",
	NameBBLower:       "BBL_20_2.0",
	NameOBV:           "OBV",
	NameClose:         "close",
	NameOpen:          "open",
	NameHigh:          "high",
	NameLow:           "low",
	NameVolume:        "volume",
	NameMM9:           "MM9",
	NameMM21:          "MM21",
}

// Column translates a symbolic indicator name into its raw column name.
func Column(name string) (string, bool) {
	col, ok := columns[strings.ToUpper(strings.TrimSpace(name))]
	return col, ok
}

// Resolve looks up the numeric value of a symbolic indicator on a row.
// It reports absent when the name is unknown, the column is missing, or the
// stored value is NaN.
func Resolve(row Row, name string) (float64, bool) {
	col, ok := Column(name)
	if !ok {
		return 0, false
	}
	return row.Value(col)
}
