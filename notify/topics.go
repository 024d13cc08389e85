package notify

const (
	TopicTables = "tables"
	TopicOrders = "orders"
)

var AllTopics = []string{TopicTables, TopicOrders}
