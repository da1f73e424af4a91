package authcore

import (
	"context"

	"github.com/google/uuid"

	internalaudit "github.com/contentshare/authcore/internal/audit"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventReissueSuccess        = "reissue_success"
	auditEventReissueFailure        = "reissue_failure"
	auditEventRefreshReplayDetected = "refresh_replay_detected"
	auditEventLogout                = "logout"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, err error) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := internalaudit.Event{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Reason = KindOf(err).String()
	}

	e.audit.Emit(ctx, event)
}
