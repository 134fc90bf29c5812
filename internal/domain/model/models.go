package model

// All lists the models owned by this service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&OneTimeEntitlement{},
		&SubscriptionEntitlement{},
		&CustomerMapping{},
		&StripeWebhookEvent{},
	}
}

// Directory lists the profile tables read by search. Profile management
// owns them in production; they are migrated only outside production.
func Directory() []interface{} {
	return []interface{}{
		&Operator{},
		&Organization{},
		&OperatorSpecialization{},
		&OrganizationSpecialization{},
	}
}
