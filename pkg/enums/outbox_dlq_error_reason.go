package enums

// OutboxDLQErrorReason records why an outbox event was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: the publisher ran out of retries.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the event can never be published as stored.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}
