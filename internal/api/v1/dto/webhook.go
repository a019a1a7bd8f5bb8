package dto

type WebhookAckDTO struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

type WebhookStatusDTO struct {
	Status string `json:"status"`
}
