package enums

// OutboxEventType enumerates the domain events this service emits.
type OutboxEventType string

const (
	EventOrderCreated  OutboxEventType = "order.created"
	EventCartAbandoned OutboxEventType = "cart.abandoned"
	EventCartMerged    OutboxEventType = "cart.merged"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateCart  OutboxAggregateType = "cart"
	AggregateOrder OutboxAggregateType = "order"
)
