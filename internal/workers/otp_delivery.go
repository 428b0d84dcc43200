package workers

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ticketbay/ticketbay/internal/tasks"
)

// HandleOTPDelivery emails a verification code. There is no SMTP integration
// yet; delivery is a structured log line a mail relay sidecar tails in dev.
func HandleOTPDelivery(ctx context.Context, t *asynq.Task, logger zerolog.Logger) error {
	payload, err := tasks.ParseOTPDeliveryPayload(t)
	if err != nil {
		return err
	}

	logger.Info().
		Str("email", payload.Email).
		Str("code", payload.Code).
		Msg("Verification code delivered")

	return nil
}
