package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// LogAuditEvent logs a structured audit event for one onboarding stage.
//
// Args:
//   - action: the stage performed (e.g., "chat_provision", "profile_update", "session_refresh")
//   - userID: the user being onboarded
//   - result: ResultSuccess or ResultFailure
//   - details: optional audit-safe details; never raw upstream payloads
func LogAuditEvent(ctx context.Context, action, userID, result string, details map[string]any) {
	LoggerFromContext(ctx).Info("Audit event",
		zap.String("audit.action", action),
		zap.String("audit.user_id", userID),
		zap.String("audit.resource_type", "onboarding"),
		zap.String("audit.result", result),
		zap.Any("audit.details", details),
	)
}
