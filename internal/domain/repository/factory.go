package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Fulfillments() FulfillmentRepository
	VariantMappings() VariantMappingRepository
	Audit() AuditRepository
}
