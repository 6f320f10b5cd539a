package marketdata

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Frame type discriminators ("T" field).
const (
	TypeTrade        = "t"
	TypeQuote        = "q"
	TypeBar          = "b"
	TypeSuccess      = "success"
	TypeError        = "error"
	TypeSubscription = "subscription"
)

// Frame is one element of an inbound frame array.
type Frame interface {
	Type() string
}

// Trade is a single execution.
type Trade struct {
	Symbol     string
	ID         int64
	Exchange   string
	Price      decimal.Decimal
	Size       decimal.Decimal
	Timestamp  time.Time
	Conditions []string
	Tape       string
}

func (Trade) Type() string { return TypeTrade }

// Quote is a top-of-book update.
type Quote struct {
	Symbol      string
	BidExchange string
	BidPrice    decimal.Decimal
	BidSize     decimal.Decimal
	AskExchange string
	AskPrice    decimal.Decimal
	AskSize     decimal.Decimal
	Timestamp   time.Time
	Conditions  []string
	Tape        string
}

func (Quote) Type() string { return TypeQuote }

// Spread returns ask minus bid.
func (q Quote) Spread() decimal.Decimal {
	return q.AskPrice.Sub(q.BidPrice)
}

// Bar is a one-minute aggregate.
type Bar struct {
	Symbol     string
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	VWAP       decimal.Decimal
	TradeCount int64
	Timestamp  time.Time
}

func (Bar) Type() string { return TypeBar }

// Success is a control acknowledgment ("connected", "authenticated").
type Success struct {
	Msg string
}

func (Success) Type() string { return TypeSuccess }

// Error is a provider error frame.
type Error struct {
	Code int
	Msg  string
}

func (Error) Type() string { return TypeError }

// SubscriptionAck lists the provider's view of the active subscriptions.
type SubscriptionAck struct {
	Trades []string
	Quotes []string
	Bars   []string
}

func (SubscriptionAck) Type() string { return TypeSubscription }

// Raw is an element with an unknown or malformed type. Data holds the
// element unchanged.
type Raw struct {
	T    string
	Data json.RawMessage
}

func (r Raw) Type() string { return r.T }

// Frames is the decoded payload of one inbound frame.
type Frames []Frame

// SentAt returns the latest data timestamp in the batch.
func (fs Frames) SentAt() (time.Time, bool) {
	var latest time.Time
	for _, f := range fs {
		var ts time.Time
		switch v := f.(type) {
		case Trade:
			ts = v.Timestamp
		case Quote:
			ts = v.Timestamp
		case Bar:
			ts = v.Timestamp
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest, !latest.IsZero()
}

// Wire types for JSON parsing

type envelopeWire struct {
	T string `json:"T"`
}

type tradeWire struct {
	Symbol     string          `json:"S"`
	ID         int64           `json:"i"`
	Exchange   string          `json:"x"`
	Price      decimal.Decimal `json:"p"`
	Size       decimal.Decimal `json:"s"`
	Timestamp  time.Time       `json:"t"`
	Conditions []string        `json:"c"`
	Tape       string          `json:"z"`
}

type quoteWire struct {
	Symbol      string          `json:"S"`
	BidExchange string          `json:"bx"`
	BidPrice    decimal.Decimal `json:"bp"`
	BidSize     decimal.Decimal `json:"bs"`
	AskExchange string          `json:"ax"`
	AskPrice    decimal.Decimal `json:"ap"`
	AskSize     decimal.Decimal `json:"as"`
	Timestamp   time.Time       `json:"t"`
	Conditions  []string        `json:"c"`
	Tape        string          `json:"z"`
}

type barWire struct {
	Symbol     string          `json:"S"`
	Open       decimal.Decimal `json:"o"`
	High       decimal.Decimal `json:"h"`
	Low        decimal.Decimal `json:"l"`
	Close      decimal.Decimal `json:"c"`
	Volume     decimal.Decimal `json:"v"`
	VWAP       decimal.Decimal `json:"vw"`
	TradeCount int64           `json:"n"`
	Timestamp  time.Time       `json:"t"`
}

type successWire struct {
	Msg string `json:"msg"`
}

type errorWire struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type subscriptionWire struct {
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
	Bars   []string `json:"bars"`
}
