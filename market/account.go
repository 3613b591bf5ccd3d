package market

import (
	"fmt"
	"strings"
)

// AccountType selects the brokerage margin regime.
type AccountType string

const (
	RegT            AccountType = "reg_t"
	PortfolioMargin AccountType = "portfolio"
)

// ParseAccountType accepts the config spellings used for each regime.
func ParseAccountType(s string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reg_t", "regt", "reg-t":
		return RegT, nil
	case "portfolio", "portfolio_margin", "pm":
		return PortfolioMargin, nil
	default:
		return "", fmt.Errorf("unknown account type %q (supported: reg_t, portfolio)", s)
	}
}

func (a AccountType) String() string { return string(a) }
