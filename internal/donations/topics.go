package donations

const (
	TopicDonationCreated       = "donation.created"
	TopicDonationStatusChanged = "donation.status.changed"
)

// All events of one donation share a partition so their order holds.
func PartitionKey(donationID string) string { return donationID }
