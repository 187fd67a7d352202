package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vendorcompliance/filestore"
	"vendorcompliance/logger"
	"vendorcompliance/metrics"
	"vendorcompliance/models"
	"vendorcompliance/realtime"
	"vendorcompliance/store"
	"vendorcompliance/workflow"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   primitive.ObjectID
	Role workflow.Role
}

// Notifier delivers workflow emails.
type Notifier interface {
	SendDocumentRejectionNotification(ctx context.Context, sub *models.DocumentSubmission, doc models.Document, vendor, reviewer *models.User) error
	SendSubmissionReceivedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, consultant *models.User) error
	SendSubmissionFinalizedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, reviewer *models.User) error
}

// Pusher delivers realtime events to a user's open connections.
type Pusher interface {
	Notify(userID string, event realtime.Event)
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog)
}

type Options struct {
	Submissions   store.SubmissionStore
	Users         store.UserStore
	Files         filestore.FileStorage
	Notifier      Notifier
	Pusher        Pusher
	Activity      ActivityRecorder
	MaxUploadSize int64
}

// SubmissionService runs the review workflow. Every state change is a single
// conditional write on the submission; side effects run after it commits and
// never undo it.
type SubmissionService struct {
	subs          store.SubmissionStore
	users         store.UserStore
	files         filestore.FileStorage
	notifier      Notifier
	pusher        Pusher
	activity      ActivityRecorder
	maxUploadSize int64

	now     func() time.Time
	pending sync.WaitGroup
}

const maxWriteAttempts = 3

var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true,
	".jpg": true, ".jpeg": true, ".png": true,
}

func NewSubmissionService(opts Options) *SubmissionService {
	maxSize := opts.MaxUploadSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &SubmissionService{
		subs:          opts.Submissions,
		users:         opts.Users,
		files:         opts.Files,
		notifier:      opts.Notifier,
		pusher:        opts.Pusher,
		activity:      opts.Activity,
		maxUploadSize: maxSize,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until queued notifications have been sent.
func (s *SubmissionService) Wait() {
	s.pending.Wait()
}

func requireRole(actor Actor, roles ...workflow.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return workflow.Forbidden("Access denied: requires role %s", strings.Join(names, " or "))
}

// load fetches a submission and checks that actor may act on it: vendors on
// their own, consultants on vendors assigned to them, admins on all.
func (s *SubmissionService) load(ctx context.Context, actor Actor, submissionID string) (*models.DocumentSubmission, error) {
	sub, err := s.subs.GetBySubmissionID(ctx, submissionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, workflow.NotFound("Submission not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	switch actor.Role {
	case workflow.RoleAdmin:
		return sub, nil
	case workflow.RoleVendor:
		if sub.Vendor != actor.ID {
			return nil, workflow.Forbidden("You can only access your own submissions")
		}
		return sub, nil
	case workflow.RoleConsultant:
		vendor, err := s.users.GetByID(ctx, sub.Vendor)
		if errors.Is(err, store.ErrNotFound) {
			return nil, workflow.NotFound("Vendor not found")
		}
		if err != nil {
			return nil, fmt.Errorf("load vendor %s: %w", sub.Vendor.Hex(), err)
		}
		if vendor.AssignedConsultant == nil || *vendor.AssignedConsultant != actor.ID {
			return nil, workflow.Forbidden("This vendor is not assigned to you")
		}
		return sub, nil
	}
	return nil, workflow.Forbidden("Access denied")
}

// update re-reads the submission, applies fn and writes it back conditioned on
// the version it read. A lost race is retried against the fresh state, so the
// transition checks inside fn always see what is stored.
func (s *SubmissionService) update(ctx context.Context, actor Actor, submissionID string, fn func(sub *models.DocumentSubmission) error) (*models.DocumentSubmission, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		sub, err := s.load(ctx, actor, submissionID)
		if err != nil {
			return nil, err
		}
		expected := sub.Version
		if err := fn(sub); err != nil {
			return nil, err
		}
		sub.LastModifiedDate = s.now()

		err = s.subs.Update(ctx, sub, expected)
		switch {
		case err == nil:
			return sub, nil
		case errors.Is(err, store.ErrVersionConflict):
			logger.FromContext(ctx).Debug("submission write lost a race, retrying",
				zap.String("submission_id", submissionID), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, workflow.NotFound("Submission not found")
		default:
			return nil, fmt.Errorf("update submission %s: %w", submissionID, err)
		}
	}
	return nil, workflow.Conflict("Submission %s was modified concurrently, please retry", submissionID)
}

func (s *SubmissionService) recordHistory(sub *models.DocumentSubmission, from workflow.SubmissionStatus, action workflow.Action, actor Actor, remarks string) {
	if from == sub.SubmissionStatus {
		return
	}
	sub.StatusHistory = append(sub.StatusHistory, models.StatusChange{
		From:    from,
		To:      sub.SubmissionStatus,
		Action:  action,
		By:      actor.ID,
		Role:    actor.Role,
		Remarks: remarks,
		At:      s.now(),
	})
}

func recordTransition(entity string, action workflow.Action, err error) {
	metrics.RecordTransition(entity, string(action), transitionOutcome(err))
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case workflow.IsKind(err, workflow.KindConflict):
		return "conflict"
	case workflow.IsKind(err, workflow.KindValidation), workflow.IsKind(err, workflow.KindForbidden), workflow.IsKind(err, workflow.KindNotFound):
		return "rejected"
	}
	return "error"
}

// background runs a side effect detached from the request. Errors are logged.
func (s *SubmissionService) background(ctx context.Context, what string, fn func(ctx context.Context) error) {
	log := logger.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn("notification failed", zap.String("notification", what), zap.Error(err))
		}
	}()
}

func (s *SubmissionService) push(userID primitive.ObjectID, event realtime.Event) {
	if s.pusher == nil || userID.IsZero() {
		return
	}
	s.pusher.Notify(userID.Hex(), event)
}

func (s *SubmissionService) record(ctx context.Context, actor Actor, action string, sub *models.DocumentSubmission, docID primitive.ObjectID, description string, details map[string]interface{}) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, models.ActivityLog{
		UserID:       actor.ID,
		UserRole:     string(actor.Role),
		Action:       action,
		EntityType:   "document_submission",
		SubmissionID: sub.SubmissionID,
		DocumentID:   docID,
		Description:  description,
		Details:      details,
	})
}

// user looks up a user for a notification; missing users are not an error.
func (s *SubmissionService) user(ctx context.Context, id primitive.ObjectID) *models.User {
	if id.IsZero() {
		return nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.FromContext(ctx).Warn("user lookup failed", zap.String("user_id", id.Hex()), zap.Error(err))
		}
		return nil
	}
	return u
}

// UploadInput is one file received from the client.
type UploadInput struct {
	DocumentType workflow.DocumentType
	DocumentName string
	FileName     string
	ContentType  string
	Size         int64
	Body         io.Reader
}

func (s *SubmissionService) validateFile(in UploadInput) error {
	if in.Body == nil || in.FileName == "" {
		return workflow.Validation("No file uploaded")
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	if !allowedExtensions[ext] {
		return workflow.Validation("Invalid file type %q. Allowed: PDF, DOC, DOCX, XLS, XLSX, JPG, JPEG, PNG", ext)
	}
	if in.Size > s.maxUploadSize {
		return workflow.Validation("File too large. Maximum size is %dMB", s.maxUploadSize>>20)
	}
	return nil
}

// storeFile saves the upload and returns a cleanup that removes it again.
func (s *SubmissionService) storeFile(ctx context.Context, in UploadInput) (filestore.StoredFile, func(), error) {
	stored, err := s.files.Save(ctx, in.FileName, in.ContentType, in.Body)
	if err != nil {
		return filestore.StoredFile{}, func() {}, fmt.Errorf("save upload: %w", err)
	}
	if stored.Size > s.maxUploadSize {
		s.removeFile(ctx, stored.Path)
		return filestore.StoredFile{}, func() {}, workflow.Validation("File too large. Maximum size is %dMB", s.maxUploadSize>>20)
	}
	return stored, func() { s.removeFile(ctx, stored.Path) }, nil
}

func (s *SubmissionService) removeFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.files.Delete(context.WithoutCancel(ctx), path); err != nil {
		logger.FromContext(ctx).Warn("failed to delete stored file", zap.String("path", path), zap.Error(err))
	}
}
