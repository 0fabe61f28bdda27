package services

// Notifier receives a change event after each successful write.
type Notifier interface {
	Notify(topic, action, id string)
}

// Change event topics and actions.
const (
	TopicResources  = "resources"
	TopicCategories = "categories"
	TopicPages      = "pages"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string) {}
