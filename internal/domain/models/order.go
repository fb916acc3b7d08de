package models

import "time"

// InstrumentType is the tradable instrument class for an approved intent.
type InstrumentType string

const (
	InstrumentEquity    InstrumentType = "equity"
	InstrumentOption    InstrumentType = "option"
	InstrumentLeveraged InstrumentType = "leveraged"
)

// InstrumentDecision maps an approved trade intent to a concrete instrument.
type InstrumentDecision struct {
	Type   InstrumentType `json:"type"`
	Symbol string         `json:"symbol"`
	Reason string         `json:"reason"`
}

// OrderSide is the brokerage order side.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the brokerage order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the broker-reported order status.
type OrderStatus string

const (
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusPartial   OrderStatus = "partially_filled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusPending   OrderStatus = "pending"
)

// OrderRequest is a sized order ready for submission.
type OrderRequest struct {
	CorrelationID string         `json:"correlation_id"`
	Ticker        string         `json:"ticker"`
	Symbol        string         `json:"symbol"`
	Instrument    InstrumentType `json:"instrument"`
	Side          OrderSide      `json:"side"`
	Quantity      float64        `json:"quantity"`
	OrderType     OrderType      `json:"order_type"`
	LimitPrice    float64        `json:"limit_price,omitempty"`
}

// OrderResult is the broker's response to a submitted order.
type OrderResult struct {
	OrderID      string      `json:"order_id"`
	Broker       string      `json:"broker"`
	Status       OrderStatus `json:"status"`
	FillPrice    float64     `json:"fill_price"`
	FillQuantity float64     `json:"fill_quantity"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	Message      string      `json:"message,omitempty"`
}

// FillValidation is the ghost-position guard outcome.
type FillValidation struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
