package pubsub

// PushRequest is the body Pub/Sub POSTs to a push subscription endpoint.
type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

// PushMessage is the message inside a PushRequest.
type PushMessage struct {
	Data       string            `json:"data"` // base64
	MessageID  string            `json:"messageId"`
	Attributes map[string]string `json:"attributes"`
}
