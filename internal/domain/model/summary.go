package model

// FulfillmentSummary is an aggregate over all fulfillment records, computed
// fresh from the store on every read.
type FulfillmentSummary struct {
	Total       int64
	ByStatus    map[Status]int64
	TotalProfit float64
}
