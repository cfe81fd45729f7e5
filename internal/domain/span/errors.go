package span

import "errors"

// ErrContractViolation reports an event list that breaks the builder's
// preconditions. It signals a bug upstream and must not be retried.
var ErrContractViolation = errors.New("span contract violation")
