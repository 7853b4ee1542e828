// Package transportplan resolves how finished sandwiches travel from an
// event to their final recipient. Three mutually exclusive plan shapes share
// storage on the event request; stale fields from a previously edited shape
// are expected, so resolution priority is applied at every read rather than
// trusting the last writer.
package transportplan

import (
	"fmt"
	"strings"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// Shape discriminates the delivery plan variants.
type Shape string

const (
	// ShapePickup: the recipient organization collects from the event site.
	ShapePickup Shape = "pickup_by_recipient"
	// ShapeOvernight: two legs with overnight storage in between.
	ShapeOvernight Shape = "overnight_storage"
	// ShapeDirect: one driver, event to recipient the same day.
	ShapeDirect Shape = "direct_delivery"
	// ShapeUnspecified: no discriminant field is set yet.
	ShapeUnspecified Shape = "not_yet_specified"
)

// Plan is the resolved view of an event's transportation fields.
type Plan struct {
	Shape              Shape
	PickupOrganization string
	StorageLocation    string
	TransportDriver1   string
	TransportDriver2   string
	FinalRecipientOrg  string
}

// Resolve picks the effective plan shape for an event request, in priority
// order: pickup by recipient, then two-step overnight storage, then direct
// delivery. Direct delivery is only the resolved shape once some transport
// field is set; otherwise the plan is unspecified.
func Resolve(e *model.EventRequest) Plan {
	t := e.Transportation
	switch {
	case t.FinalDeliveryMethod == string(ShapePickup):
		return Plan{
			Shape:              ShapePickup,
			PickupOrganization: t.PickupOrganization,
		}
	case t.OvernightStorageRequired:
		return Plan{
			Shape:             ShapeOvernight,
			StorageLocation:   t.StorageLocation,
			TransportDriver1:  t.TransportDriver1,
			TransportDriver2:  t.TransportDriver2,
			FinalRecipientOrg: t.FinalRecipientOrg,
		}
	case t.FinalDeliveryMethod != "" || t.TransportDriver1 != "" || t.FinalRecipientOrg != "":
		return Plan{
			Shape:             ShapeDirect,
			TransportDriver1:  t.TransportDriver1,
			FinalRecipientOrg: t.FinalRecipientOrg,
		}
	default:
		return Plan{Shape: ShapeUnspecified}
	}
}

// Validate reports the required fields the resolved plan is missing.
func Validate(p Plan) error {
	var missing []string
	switch p.Shape {
	case ShapePickup:
		if p.PickupOrganization == "" {
			missing = append(missing, "pickupOrganization")
		}
	case ShapeOvernight:
		if p.StorageLocation == "" {
			missing = append(missing, "storageLocation")
		}
		if p.TransportDriver1 == "" {
			missing = append(missing, "transportDriver1")
		}
		if p.TransportDriver2 == "" {
			missing = append(missing, "transportDriver2")
		}
		if p.FinalRecipientOrg == "" {
			missing = append(missing, "finalRecipientOrg")
		}
	case ShapeDirect:
		if p.TransportDriver1 == "" {
			missing = append(missing, "transportDriver1")
		}
	}
	if len(missing) > 0 {
		return &model.ValidationError{Action: "transportation:" + string(p.Shape), Fields: missing}
	}
	return nil
}

// Describe renders the resolved plan for display.
func Describe(p Plan) string {
	switch p.Shape {
	case ShapePickup:
		return fmt.Sprintf("Pickup by %s", orTBD(p.PickupOrganization))
	case ShapeOvernight:
		legs := []string{
			fmt.Sprintf("event -> %s (%s)", orTBD(p.StorageLocation), orTBD(p.TransportDriver1)),
			fmt.Sprintf("%s -> %s (%s)", orTBD(p.StorageLocation), orTBD(p.FinalRecipientOrg), orTBD(p.TransportDriver2)),
		}
		return "Overnight storage: " + strings.Join(legs, ", ")
	case ShapeDirect:
		return fmt.Sprintf("Direct delivery to %s (%s)", orTBD(p.FinalRecipientOrg), orTBD(p.TransportDriver1))
	default:
		return "not yet specified"
	}
}

// SetShape writes one shape's fields onto the event without clearing the
// fields of the other shapes, and returns the changed fields as a patch.
func SetShape(e *model.EventRequest, p Plan) (map[string]any, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	t := &e.Transportation
	switch p.Shape {
	case ShapePickup:
		t.FinalDeliveryMethod = string(ShapePickup)
		t.PickupOrganization = p.PickupOrganization
	case ShapeOvernight:
		t.OvernightStorageRequired = true
		t.StorageLocation = p.StorageLocation
		t.TransportDriver1 = p.TransportDriver1
		t.TransportDriver2 = p.TransportDriver2
		t.FinalRecipientOrg = p.FinalRecipientOrg
	case ShapeDirect:
		t.FinalDeliveryMethod = string(ShapeDirect)
		t.TransportDriver1 = p.TransportDriver1
		t.FinalRecipientOrg = p.FinalRecipientOrg
	default:
		return nil, fmt.Errorf("cannot store plan shape %q", p.Shape)
	}
	return map[string]any{"transportation": *t}, nil
}

func orTBD(s string) string {
	if s == "" {
		return "TBD"
	}
	return s
}
