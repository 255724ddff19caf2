package alpha_vantage

import (
	"fmt"
	"strings"
)

// DataFunction is a commodity or economic indicator endpoint. All of them answer with
// {"name", "interval", "unit", "data": [{"date", "value"}]}.
type DataFunction string

// commodities
const (
	WTI        DataFunction = "WTI"
	Brent      DataFunction = "BRENT"
	NaturalGas DataFunction = "NATURAL_GAS"
	Copper     DataFunction = "COPPER"
	Aluminum   DataFunction = "ALUMINUM"
	Wheat      DataFunction = "WHEAT"
	Corn       DataFunction = "CORN"
	Cotton     DataFunction = "COTTON"
	Sugar      DataFunction = "SUGAR"
	Coffee     DataFunction = "COFFEE"
)

// economic indicators
const (
	RealGDP          DataFunction = "REAL_GDP"
	FederalFundsRate DataFunction = "FEDERAL_FUNDS_RATE"
	CPI              DataFunction = "CPI"
	Inflation        DataFunction = "INFLATION"
	RetailSales      DataFunction = "RETAIL_SALES"
	Unemployment     DataFunction = "UNEMPLOYMENT"
	NonfarmPayroll   DataFunction = "NONFARM_PAYROLL"
)

var (
	commodities = []DataFunction{WTI, Brent, NaturalGas, Copper, Aluminum, Wheat, Corn, Cotton, Sugar, Coffee}
	indicators  = []DataFunction{RealGDP, FederalFundsRate, CPI, Inflation, RetailSales, Unemployment, NonfarmPayroll}
)

func (f DataFunction) IsCommodity() bool {
	for _, c := range commodities {
		if f == c {
			return true
		}
	}
	return false
}

func (f DataFunction) IsIndicator() bool {
	for _, i := range indicators {
		if f == i {
			return true
		}
	}
	return false
}

func ParseDataFunction(fn string) (DataFunction, error) {
	f := DataFunction(strings.ToUpper(fn))
	if f.IsCommodity() || f.IsIndicator() {
		return f, nil
	}
	return "", fmt.Errorf("unknown data function %q", fn)
}
