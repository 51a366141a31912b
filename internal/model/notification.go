package model

// NotificationStatus is the tone of a user-visible notification.
type NotificationStatus string

const (
	NotifySuccess NotificationStatus = "success"
	NotifyError   NotificationStatus = "error"
)

// Notification is a transient, non-blocking message shown to the user after
// an action completes or fails.
type Notification struct {
	Status NotificationStatus
	Title  string
	Detail string
}

func Success(title string) *Notification {
	return &Notification{Status: NotifySuccess, Title: title}
}

func Failure(title string, err error) *Notification {
	n := &Notification{Status: NotifyError, Title: title}
	if err != nil {
		n.Detail = err.Error()
	}
	return n
}
