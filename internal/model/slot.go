package model

// TemplateSlot is one entry of a restaurant's slot template: a named,
// repeating time-of-day booking opportunity ("18:00", "19:30") with the
// maximum aggregate party size it can accept per calendar date.  The
// template is owned by the catalog and read-only to the booking core;
// capacity is enforced by the booking ledger at commit time, never here.
//
// Fields:
//  ID           – primary key identifier.
//  RestaurantID – restaurant this slot belongs to.
//  Label        – time-of-day label ("HH:MM"), unique per restaurant.
//  Capacity     – covers the slot can accept per date.
//  Position     – ordering within the template.
type TemplateSlot struct {
	ID           uint64 // slot_templates.id
	RestaurantID uint64 // slot_templates.restaurant_id
	Label        string // slot_templates.label
	Capacity     int    // slot_templates.capacity
	Position     int    // slot_templates.position
}
