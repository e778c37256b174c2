package events

import "time"

// Type is the closed set of event names the engine emits. Consumers switch
// on it exhaustively instead of matching free-form strings.
type Type string

const (
	TypeSignal             Type = "signal"
	TypeTradeOpened        Type = "trade:opened"
	TypeTradeClosed        Type = "trade:closed"
	TypeAlert              Type = "alert"
	TypeError              Type = "error"
	TypeStateUpdated       Type = "state:updated"
	TypePositionsMonitored Type = "positions:monitored"
	TypeDashboardUpdate    Type = "dashboard:update"
	TypeArbitrageDetected  Type = "arbitrage:detected"
	TypeCycleComplete      Type = "cycle:complete"
	TypeCandle             Type = "candle"
)

// Valid reports whether t belongs to the event vocabulary.
func (t Type) Valid() bool {
	switch t {
	case TypeSignal, TypeTradeOpened, TypeTradeClosed, TypeAlert, TypeError,
		TypeStateUpdated, TypePositionsMonitored, TypeDashboardUpdate,
		TypeArbitrageDetected, TypeCycleComplete, TypeCandle:
		return true
	}
	return false
}

// Event is one published engine event. Payload must be JSON-serializable.
type Event struct {
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
