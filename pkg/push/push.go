package push

import (
	"context"

	"party-service/internal/domain"
)

// BatchLimit is the push service's per-call recipient cap. The dispatcher
// chunks token lists to this size before calling Send.
const BatchLimit = 500

// Report is the per-batch outcome. DeadTokens holds every token the service
// did not accept; the delivery contract says to treat any non-success as dead
// for hygiene purposes.
type Report struct {
	Success    int
	Failure    int
	DeadTokens []string
}

// Sender delivers one composed message to one batch of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg *domain.PushMessage) (*Report, error)
}
