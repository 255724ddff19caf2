package models

const (
	Daily     = 252
	Weekly    = 52
	Monthly   = 12
	Quarterly = 4
	Yearly    = 1
)

// ReturnStatistics summarizes one return column over the output window.
type ReturnStatistics struct {
	Column               string
	Count                int
	Mean                 float64
	StdDev               float64
	Min                  float64
	Max                  float64
	AnnualizedMean       float64
	AnnualizedVolatility float64
}

func ConvertFrequencyToString(inp int) string {
	switch inp {
	case Daily:
		return "days"
	case Weekly:
		return "weeks"
	case Monthly:
		return "months"
	case Quarterly:
		return "quarters"
	case Yearly:
		return "years"
	default:
		return ""
	}
}
