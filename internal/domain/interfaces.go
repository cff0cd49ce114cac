package domain

import "context"

// ReturnProvider supplies the realized total return and maximum drawdown of
// a ticker over a historical window. Implementations return an error
// wrapping ErrDataUnavailable when no usable series exists.
type ReturnProvider interface {
	GetReturnAndDrawdown(ctx context.Context, ticker string, dateRange DateRange) (ReturnAndDrawdown, error)
}

// AnalogResolver resolves analog ids against the static registry
type AnalogResolver interface {
	Resolve(id string) (HistoricalAnalog, error)
}
