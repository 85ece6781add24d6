package reconcile

import "errors"

var (
	ErrMissingIntentID          = errors.New("payment intent id is required")
	ErrPaymentNotSuccessful     = errors.New("payment has not succeeded")
	ErrPaymentOwnershipMismatch = errors.New("payment intent belongs to another user")
	ErrMissingMetadata          = errors.New("payment intent has no storefront metadata")
	ErrProductModelMismatch     = errors.New("paid product has no matching model")
	ErrAmountMismatch           = errors.New("payment amount does not match catalog price")
	ErrFulfillmentPending       = errors.New("payment recorded, access grant pending")
)

// Outcome is the result of a successful reconciliation. Callers that only need
// to know "did the user get access" can treat every outcome except
// OutcomeFailureRecorded and OutcomeIgnored as yes.
type Outcome string

const (
	OutcomeRecorded         Outcome = "recorded"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeFailureRecorded  Outcome = "failure_recorded"
	OutcomeIgnored          Outcome = "ignored"
)
