package sync

import "errors"

var (
	// ErrWebhookSignatureInvalid means the delivery failed HMAC verification
	ErrWebhookSignatureInvalid = errors.New("sync: webhook signature verification failed")
	// ErrWebhookMalformed means the delivery body could not be parsed
	ErrWebhookMalformed = errors.New("sync: webhook payload is malformed")
)
