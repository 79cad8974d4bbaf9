package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)

// Position is an open holding. The ledger owns it exclusively; the engines
// using a ledger keep at most one open position at a time (single asset,
// all-or-nothing sizing).
type Position struct {
	EntryDate  time.Time       `json:"entry_date"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Quantity   int64           `json:"quantity"`
	Cost       decimal.Decimal `json:"cost"`
}

// Trade is one executed buy or sell. The trade list is append-only and
// chronological. PnL is nil for buys.
type Trade struct {
	Date         time.Time        `json:"date"`
	Type         string           `json:"type"`
	Price        decimal.Decimal  `json:"price"`
	Quantity     int64            `json:"quantity"`
	PnL          *decimal.Decimal `json:"pnl,omitempty"`
	CapitalAfter decimal.Decimal  `json:"capital_after"`
}

// EquityPoint is total account value at one moment: cash plus the
// mark-to-market value of any open position.
type EquityPoint struct {
	Date   time.Time       `json:"date"`
	Equity decimal.Decimal `json:"equity"`
}

// Ledger owns capital, open positions and the trade log for one simulation
// run (backtest or paper session). It is not safe for concurrent use; each
// engine instance holds its own.
type Ledger struct {
	capital   decimal.Decimal
	sizePct   decimal.Decimal
	positions []Position
	trades    []Trade
}

func New(initialCapital, positionSizePct decimal.Decimal) *Ledger {
	return &Ledger{
		capital: initialCapital,
		sizePct: positionSizePct,
	}
}

func (l *Ledger) Capital() decimal.Decimal { return l.capital }

func (l *Ledger) Positions() []Position { return l.positions }

func (l *Ledger) Trades() []Trade { return l.trades }

func (l *Ledger) HasOpenPosition() bool { return len(l.positions) > 0 }

// PositionSize converts available capital and the strategy's percentage
// allocation into a share quantity: floor(capital * pct% / price), floored at
// a minimum of one share. Affordability is not checked here; Buy does that.
func (l *Ledger) PositionSize(price decimal.Decimal) int64 {
	if price.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	quantity := l.capital.
		Mul(l.sizePct).
		Div(decimal.NewFromInt(100)).
		Div(price).
		Floor().
		IntPart()

	if quantity < 1 {
		return 1
	}
	return quantity
}

// Buy opens a position at the given price. A buy whose cost exceeds
// available capital is rejected outright (no partial fill): the ledger is
// left untouched and no trade is returned. Capital can therefore never go
// negative.
func (l *Ledger) Buy(date time.Time, price decimal.Decimal) *Trade {
	quantity := l.PositionSize(price)
	if quantity <= 0 {
		return nil
	}

	cost := price.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(l.capital) {
		return nil
	}

	l.capital = l.capital.Sub(cost)
	l.positions = append(l.positions, Position{
		EntryDate:  date,
		EntryPrice: price,
		Quantity:   quantity,
		Cost:       cost,
	})

	trade := Trade{
		Date:         date,
		Type:         TradeTypeBuy,
		Price:        price,
		Quantity:     quantity,
		CapitalAfter: l.capital,
	}
	l.trades = append(l.trades, trade)

	return &l.trades[len(l.trades)-1]
}

// Sell closes one open position at the given price, crediting the proceeds
// and realizing PnL against the entry price. Selling an open position always
// succeeds; there is no capital check on the way out.
func (l *Ledger) Sell(date time.Time, price decimal.Decimal, index int) *Trade {
	if index < 0 || index >= len(l.positions) {
		return nil
	}

	position := l.positions[index]
	quantity := decimal.NewFromInt(position.Quantity)
	proceeds := price.Mul(quantity)
	pnl := proceeds.Sub(position.EntryPrice.Mul(quantity))

	l.capital = l.capital.Add(proceeds)
	l.positions = append(l.positions[:index], l.positions[index+1:]...)

	trade := Trade{
		Date:         date,
		Type:         TradeTypeSell,
		Price:        price,
		Quantity:     position.Quantity,
		PnL:          &pnl,
		CapitalAfter: l.capital,
	}
	l.trades = append(l.trades, trade)

	return &l.trades[len(l.trades)-1]
}

// CloseAll sells every open position at the given price. Used for the forced
// end-of-run close and for paper-trading exits.
func (l *Ledger) CloseAll(date time.Time, price decimal.Decimal) []Trade {
	var closed []Trade
	for len(l.positions) > 0 {
		trade := l.Sell(date, price, 0)
		if trade == nil {
			break
		}
		closed = append(closed, *trade)
	}
	return closed
}

// Equity is cash plus mark-to-market value of open positions at the given
// price.
func (l *Ledger) Equity(price decimal.Decimal) decimal.Decimal {
	equity := l.capital
	for _, position := range l.positions {
		equity = equity.Add(price.Mul(decimal.NewFromInt(position.Quantity)))
	}
	return equity
}
