package policy

import (
	"slices"
	"strconv"
	"strings"
)

func formatUSD(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func itoaCount(n int) string { return strconv.Itoa(n) }

func containsString(items []string, item string) bool {
	return slices.Contains(items, item)
}

func joinStrings(items []string) string {
	return strings.Join(items, ", ")
}
