package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vendorcompliance/logger"
	"vendorcompliance/models"
	"vendorcompliance/realtime"
	"vendorcompliance/store"
)

// Actions recorded in the activity log.
const (
	ActionSubmissionCreated   = "submission_created"
	ActionDocumentUploaded    = "document_uploaded"
	ActionSubmissionSubmitted = "submission_submitted"
	ActionReviewStarted       = "review_started"
	ActionDocumentReviewed    = "document_reviewed"
	ActionSubmissionFinalized = "submission_finalized"
	ActionDocumentResubmitted = "document_resubmitted"
	ActionUserCreated         = "user_created"
	ActionConsultantAssigned  = "consultant_assigned"
	ActionLogin               = "login"
)

// Broadcaster pushes entries to connected admins.
type Broadcaster interface {
	NotifyRole(role string, event realtime.Event)
}

type requestInfoKey struct{}

type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// WithRequestInfo stores the caller's address and agent for later log entries.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// Recorder writes activity entries. Failures are logged and never returned.
type Recorder struct {
	store       store.ActivityStore
	broadcaster Broadcaster
	timeout     time.Duration
}

func NewRecorder(s store.ActivityStore, b Broadcaster) *Recorder {
	return &Recorder{store: s, broadcaster: b, timeout: 5 * time.Second}
}

func (r *Recorder) Record(ctx context.Context, entry models.ActivityLog) {
	if r == nil || r.store == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		entry.IPAddress = info.IPAddress
		entry.UserAgent = info.UserAgent
	}

	// The write outlives a cancelled request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.Insert(writeCtx, &entry); err != nil {
		logger.FromContext(ctx).Error("failed to save activity log",
			zap.String("action", entry.Action),
			zap.String("submission_id", entry.SubmissionID),
			zap.Error(err))
		return
	}

	if r.broadcaster != nil {
		r.broadcaster.NotifyRole("admin", realtime.Event{
			Type:         realtime.EventActivity,
			SubmissionID: entry.SubmissionID,
			Data:         entry,
			Timestamp:    entry.CreatedAt,
		})
	}
}
