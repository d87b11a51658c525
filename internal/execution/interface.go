package execution

import "context"

// Order is a market order handed to the broker.
type Order struct {
	Code     string
	Market   string
	Side     string // "BUY" or "SELL"
	Quantity int
}

// Fill is the broker's execution report.
type Fill struct {
	OrderID  string
	Quantity int
	Price    float64
}

// Broker is the brokerage session boundary. Implementations wrap a real
// brokerage API; the executor only ever talks through this interface.
type Broker interface {
	SubmitOrder(ctx context.Context, order Order) (*Fill, error)
	CurrentPrice(ctx context.Context, code, market string) (float64, error)
}

// Notifier delivers trade and risk notifications to the operator.
type Notifier interface {
	NotifyTrade(strategy, code, side string, quantity int, price float64, reason string)
	NotifyRisk(message string)
	NotifyError(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyTrade(string, string, string, int, float64, string) {}
func (NopNotifier) NotifyRisk(string)                                        {}
func (NopNotifier) NotifyError(string)                                       {}
