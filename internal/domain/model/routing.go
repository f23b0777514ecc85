package model

// FulfillmentMode distinguishes automatic submission from manual handling.
type FulfillmentMode string

const (
	ModeAuto   FulfillmentMode = "auto"
	ModeManual FulfillmentMode = "manual"
)

// RoutingDecision is the per-line-item output of the fulfillment router.
type RoutingDecision struct {
	LineItemID string
	Supplier   Supplier
	Mode       FulfillmentMode
	Retryable  bool
	Reason     string
	Variant    *VariantMapping
}

// IntakeResult pairs a routing decision with the fulfillment record it
// produced. Created is false when a replayed webhook hit an existing record.
type IntakeResult struct {
	Decision RoutingDecision
	Order    *FulfillmentOrder
	Created  bool
}
