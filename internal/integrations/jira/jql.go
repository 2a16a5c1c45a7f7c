package jira

import (
	"fmt"
	"strings"
)

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// OrderProductJQL finds the live ticket of one product of an order.
func OrderProductJQL(orderNumber, productName, boardID string) string {
	return fmt.Sprintf(`%s ~ %s AND %s ~ %s AND status != Cancelled AND project = %s`,
		jqlOrderNumber, quote(orderNumber), jqlService, quote(productName), boardID)
}

// OrderTicketsJQL finds every live product ticket of an order.
func OrderTicketsJQL(orderNumber, boardID string) string {
	return fmt.Sprintf(`%s ~ %s AND %s IS NOT EMPTY AND status != Cancelled AND project = %s`,
		jqlOrderNumber, quote(orderNumber), jqlService, boardID)
}

// ListingLinkJQL finds tickets of an order that already carry a listing link.
func ListingLinkJQL(orderNumber, boardID string) string {
	return fmt.Sprintf(`%s ~ %s AND %s IS NOT EMPTY AND project = %s`,
		jqlOrderNumber, quote(orderNumber), jqlListingLink, boardID)
}
