package events

// Topic constants for domain events emitted by the POS.
const (
	TopicSaleCompleted = "sale.completed"
	TopicSessionOpened = "session.opened"
	TopicSessionClosed = "session.closed"
)

// DefaultTopics returns the topics the POS emits.
func DefaultTopics() []string {
	return []string{TopicSaleCompleted, TopicSessionOpened, TopicSessionClosed}
}
