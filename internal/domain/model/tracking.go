package model

import "strings"

// TrackingEvent is a single shipment status update reported by the supplier.
type TrackingEvent struct {
	Status      string
	TrackingURL string
}

// Shipment is the supplier's view of a tracked parcel.
type Shipment struct {
	TrackingNumber string
	Events         []TrackingEvent
}

// Latest returns the most recent tracking event, or nil when none exist.
func (s *Shipment) Latest() *TrackingEvent {
	if len(s.Events) == 0 {
		return nil
	}
	return &s.Events[len(s.Events)-1]
}

// StatusFromTrackingText maps free-form supplier status text onto the
// fulfillment lifecycle. The second return is false when the text implies no
// status change.
func StatusFromTrackingText(text string) (Status, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "delivered"), strings.Contains(lower, "signed"):
		return StatusDelivered, true
	case strings.Contains(lower, "shipped"), strings.Contains(lower, "in transit"):
		return StatusShipped, true
	default:
		return "", false
	}
}
