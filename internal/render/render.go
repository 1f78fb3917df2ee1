// Package render prints normalized account data as fixed-width text for the
// command-line front-end.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"brokerdesk/internal/domain"
)

// Styles.
var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ErrorMarker prefixes every error line.
const ErrorMarker = "ERROR"

// Money formats v with thousands separators and two decimals.
func Money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// Percent formats a raw fraction as a percentage with two decimals.
func Percent(fraction float64) string {
	return humanize.FormatFloat("#,###.##", fraction*100) + "%"
}

// Error prints a single error line.
func Error(w io.Writer, context string, msg string) {
	fmt.Fprintf(w, "%s %s: %s\n", errorStyle.Render(ErrorMarker), context, msg)
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n---\n%s\n---\n", headingStyle.Render(title))
}

// Account prints the account summary.
func Account(w io.Writer, a domain.AccountStatus) {
	heading(w, "Account Status")

	yesNo := "No"
	if a.PatternDayTrader {
		yesNo = "Yes"
	}

	fmt.Fprintf(w, "%-22s%s (%s)\n", "Account Status:", a.DisplayStatus(), a.ID)
	fmt.Fprintf(w, "%-22s%s\n", "Currency:", a.Currency)
	fmt.Fprintf(w, "%-22s$%s\n", "Portfolio Value:", Money(a.PortfolioValue))
	fmt.Fprintf(w, "%-22s$%s\n", "Equity:", Money(a.Equity))
	fmt.Fprintf(w, "%-22s$%s\n", "Cash:", Money(a.Cash))
	fmt.Fprintf(w, "%-22s$%s\n", "Buying Power:", Money(a.BuyingPower))
	fmt.Fprintf(w, "%-22s%d\n", "Daytrade Count:", a.DaytradeCount)
	fmt.Fprintf(w, "%-22s%s\n", "Pattern Day Trader:", yesNo)
	if a.TradingBlocked || a.AccountBlocked {
		fmt.Fprintf(w, "%s\n", errorStyle.Render("Trading is blocked on this account"))
	}
}

// Positions prints one row per position.
func Positions(w io.Writer, positions []domain.Position) {
	if len(positions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No open positions found."))
		return
	}

	heading(w, "Open Positions")
	fmt.Fprintf(w, "%-10s %-10s %-18s %-15s %-15s %-15s\n",
		"Symbol", "Qty", "Avg Entry Price", "Current Price", "P/L ($)", "P/L (%)")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, p := range positions {
		style := gainStyle
		if p.UnrealizedPL < 0 {
			style = lossStyle
		}
		// Pad before styling so escape codes do not break the column widths.
		pl := style.Render(fmt.Sprintf("%-15s", Money(p.UnrealizedPL)))
		plpc := style.Render(fmt.Sprintf("%-15s", Percent(p.UnrealizedPLPC)))
		fmt.Fprintf(w, "%-10s %-10s $%-17s $%-14s %s %s\n",
			p.Symbol,
			humanize.Ftoa(p.Qty),
			Money(p.AvgEntryPrice),
			Money(p.CurrentPrice),
			pl,
			plpc,
		)
	}
}

// Orders prints one row per order.
func Orders(w io.Writer, status domain.OrderStatusFilter, orders []domain.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("No orders found with status '%s'.", status)))
		return
	}

	heading(w, fmt.Sprintf("Orders (Status: %s)", status))
	fmt.Fprintf(w, "%-38s %-10s %-8s %-8s %-10s %-12s\n", "ID", "Symbol", "Qty", "Side", "Type", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, o := range orders {
		fmt.Fprintf(w, "%-38s %-10s %-8s %-8s %-10s %-12s\n", o.ID, o.Symbol, o.Qty, o.Side, o.Type, o.Status)
	}
}

// OrderConfirmation prints the provider's acknowledgement of a new order.
func OrderConfirmation(w io.Writer, o domain.Order) {
	fmt.Fprintln(w, okStyle.Render("Order submitted successfully!"))
	fmt.Fprintf(w, "    %-14s%s\n", "ID:", o.ID)
	fmt.Fprintf(w, "    %-14s%s\n", "Symbol:", o.Symbol)
	fmt.Fprintf(w, "    %-14s%s\n", "Qty:", o.Qty)
	fmt.Fprintf(w, "    %-14s%s\n", "Side:", o.Side)
	fmt.Fprintf(w, "    %-14s%s\n", "Type:", o.Type)
	fmt.Fprintf(w, "    %-14s%s\n", "Time In Force:", o.TimeInForce)
	if o.LimitPrice != domain.Placeholder {
		fmt.Fprintf(w, "    %-14s%s\n", "Limit Price:", o.LimitPrice)
	}
	fmt.Fprintf(w, "    %-14s%s\n", "Status:", o.Status)
}
