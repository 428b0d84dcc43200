package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// OTP email delivery (store mode only)
	TypeOTPDelivery = "otp:deliver"

	// Daily sales rollup
	TypeReportRollup = "reports:rollup"
)

// OTPDeliveryPayload carries a verification code to the mailer worker
type OTPDeliveryPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ReportRollupPayload names the day to aggregate (YYYY-MM-DD)
type ReportRollupPayload struct {
	Date string `json:"date"`
}

// NewOTPDeliveryTask creates a task to email a verification code
func NewOTPDeliveryTask(email, code string) (*asynq.Task, error) {
	payload, err := json.Marshal(OTPDeliveryPayload{
		Email: email,
		Code:  code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeOTPDelivery, payload, asynq.Queue("critical")), nil
}

// NewReportRollupTask creates a task to aggregate one day of orders
func NewReportRollupTask(date string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportRollupPayload{Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeReportRollup, payload, asynq.Queue("low")), nil
}

// ParseOTPDeliveryPayload parses an OTP delivery payload from an Asynq task
func ParseOTPDeliveryPayload(task *asynq.Task) (OTPDeliveryPayload, error) {
	var payload OTPDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParseReportRollupPayload parses a rollup payload from an Asynq task
func ParseReportRollupPayload(task *asynq.Task) (ReportRollupPayload, error) {
	var payload ReportRollupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
