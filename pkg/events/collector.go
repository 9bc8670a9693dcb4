package events

// EventCollector is embedded in aggregates to buffer domain events raised by
// state transitions until the application layer publishes them.
type EventCollector struct {
	pending []DomainEvent
}

// Record buffers an event.
func (c *EventCollector) Record(event DomainEvent) {
	c.pending = append(c.pending, event)
}

// Pending returns the buffered events without removing them.
func (c *EventCollector) Pending() []DomainEvent {
	return c.pending
}

// DomainEvents returns the buffered events and empties the buffer.
func (c *EventCollector) DomainEvents() []DomainEvent {
	out := c.pending
	c.pending = nil
	return out
}
