package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"vendorcompliance/activity"
	"vendorcompliance/logger"
	"vendorcompliance/metrics"
	"vendorcompliance/models"
	"vendorcompliance/realtime"
	"vendorcompliance/store"
	"vendorcompliance/workflow"
)

func newSubmissionID(year int, month string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("SUB-%d-%s-%s", year, strings.ToUpper(month), suffix)
}

// CreateSubmission returns the vendor's submission for the period, creating a
// draft when none exists. created reports which happened.
func (s *SubmissionService) CreateSubmission(ctx context.Context, actor Actor, year int, month string) (*models.DocumentSubmission, bool, error) {
	if err := requireRole(actor, workflow.RoleVendor); err != nil {
		return nil, false, err
	}
	m, ok := workflow.ParseMonth(month)
	if !ok {
		return nil, false, workflow.Validation("Invalid month %q", month)
	}
	if year < 2000 || year > 2100 {
		return nil, false, workflow.Validation("Invalid year %d", year)
	}

	existing, err := s.subs.FindByPeriod(ctx, actor.ID, year, m)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("find submission: %w", err)
	}

	now := s.now()
	sub := &models.DocumentSubmission{
		SubmissionID:     newSubmissionID(year, m),
		Vendor:           actor.ID,
		UploadPeriod:     models.UploadPeriod{Year: year, Month: m},
		Documents:        []models.Document{},
		SubmissionStatus: workflow.SubDraft,
		LastModifiedDate: now,
		CreatedAt:        now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Another request created the period first.
			existing, findErr := s.subs.FindByPeriod(ctx, actor.ID, year, m)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create submission: %w", err)
	}

	s.record(ctx, actor, activity.ActionSubmissionCreated, sub, primitive.NilObjectID,
		fmt.Sprintf("Created submission for %s %d", m, year), nil)
	return sub, true, nil
}

// UploadDocument attaches a file for one document type to a draft submission,
// replacing any earlier upload of the same type.
func (s *SubmissionService) UploadDocument(ctx context.Context, actor Actor, submissionID string, in UploadInput) (*models.DocumentSubmission, *models.Document, error) {
	if err := requireRole(actor, workflow.RoleVendor); err != nil {
		return nil, nil, err
	}
	if !workflow.IsKnownDocumentType(in.DocumentType) {
		return nil, nil, workflow.Validation("Invalid document type %q", in.DocumentType)
	}
	if err := s.validateFile(in); err != nil {
		return nil, nil, err
	}

	// Checks that need no file run before anything is written.
	current, err := s.load(ctx, actor, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if err := checkUploadable(current); err != nil {
		return nil, nil, err
	}
	if err := s.checkOneTime(ctx, current, in.DocumentType); err != nil {
		return nil, nil, err
	}

	stored, cleanup, err := s.storeFile(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	var doc models.Document
	var replacedPath string
	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		if err := checkUploadable(sub); err != nil {
			return err
		}

		idx := sub.FindDocumentByType(in.DocumentType)
		prev := workflow.DocPending
		if idx >= 0 {
			prev = sub.Documents[idx].Status
		}
		status, err := workflow.NextDocumentStatus(prev, workflow.ActUpload, actor.Role)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(in.DocumentName)
		if name == "" {
			name = in.FileName
		}
		doc = models.Document{
			ID:           primitive.NewObjectID(),
			DocumentType: in.DocumentType,
			DocumentName: name,
			FileName:     in.FileName,
			FilePath:     stored.Path,
			FileSize:     stored.Size,
			ContentType:  in.ContentType,
			Status:       status,
			IsMandatory:  workflow.IsMandatory(in.DocumentType, sub.UploadPeriod.Month),
			UploadDate:   s.now(),
		}
		replacedPath = ""
		if idx >= 0 {
			doc.ID = sub.Documents[idx].ID
			replacedPath = sub.Documents[idx].FilePath
			sub.Documents[idx] = doc
		} else {
			sub.Documents = append(sub.Documents, doc)
		}
		return nil
	})
	recordTransition("document", workflow.ActUpload, err)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	metrics.RecordUpload(stored.Size)
	s.removeFile(ctx, replacedPath)
	s.record(ctx, actor, activity.ActionDocumentUploaded, sub, doc.ID,
		fmt.Sprintf("Uploaded %s", doc.DocumentType), map[string]interface{}{"fileName": doc.FileName})
	return sub, &doc, nil
}

// checkOneTime refuses a one-time document type the vendor already holds in
// another period.
func (s *SubmissionService) checkOneTime(ctx context.Context, sub *models.DocumentSubmission, docType workflow.DocumentType) error {
	if !workflow.IsOneTime(docType) {
		return nil
	}
	has, err := s.subs.VendorHasDocumentType(ctx, sub.Vendor, docType, sub.SubmissionID)
	if err != nil {
		return fmt.Errorf("check one-time document: %w", err)
	}
	if has {
		return workflow.Validation("%s has already been uploaded in another period", docType)
	}
	return nil
}

func checkUploadable(sub *models.DocumentSubmission) error {
	if sub.SubmissionStatus != workflow.SubDraft {
		return workflow.Conflict("Documents can only be uploaded to a draft submission; use resubmission for rejected documents")
	}
	return nil
}

// SubmitForReview hands a complete draft to the vendor's consultant.
func (s *SubmissionService) SubmitForReview(ctx context.Context, actor Actor, submissionID string) (*models.DocumentSubmission, error) {
	if err := requireRole(actor, workflow.RoleVendor); err != nil {
		return nil, err
	}

	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		next, err := workflow.NextSubmissionStatus(sub.SubmissionStatus, workflow.ActSubmit, actor.Role)
		if err != nil {
			return err
		}
		if missing := workflow.MissingMandatory(sub.UploadPeriod.Month, sub.DocumentTypes()); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, t := range missing {
				names[i] = string(t)
			}
			verr := workflow.Validation("Missing mandatory documents: %s", strings.Join(names, ", "))
			verr.Missing = missing
			return verr
		}

		from := sub.SubmissionStatus
		now := s.now()
		sub.SubmissionStatus = next
		sub.SubmissionDate = &now
		s.recordHistory(sub, from, workflow.ActSubmit, actor, "")
		return nil
	})
	recordTransition("submission", workflow.ActSubmit, err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, activity.ActionSubmissionSubmitted, sub, primitive.NilObjectID,
		fmt.Sprintf("Submitted %d documents for review", len(sub.Documents)), nil)

	vendor := s.user(ctx, sub.Vendor)
	if vendor != nil && vendor.AssignedConsultant != nil {
		consultantID := *vendor.AssignedConsultant
		s.push(consultantID, realtime.Event{Type: realtime.EventSubmissionSubmitted, SubmissionID: sub.SubmissionID})
		if s.notifier != nil {
			snapshot := sub.Clone()
			s.background(ctx, "submission_received", func(ctx context.Context) error {
				return s.notifier.SendSubmissionReceivedNotification(ctx, snapshot, vendor, s.user(ctx, consultantID))
			})
		}
	} else {
		logger.FromContext(ctx).Warn("submitted vendor has no assigned consultant", zap.String("submission_id", sub.SubmissionID))
	}
	return sub, nil
}

// StartReview moves a submitted submission and its uploaded documents under review.
func (s *SubmissionService) StartReview(ctx context.Context, actor Actor, submissionID string) (*models.DocumentSubmission, error) {
	if err := requireRole(actor, workflow.RoleConsultant, workflow.RoleAdmin); err != nil {
		return nil, err
	}

	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		next, err := workflow.NextSubmissionStatus(sub.SubmissionStatus, workflow.ActStartReview, actor.Role)
		if err != nil {
			return err
		}
		for i := range sub.Documents {
			if status, err := workflow.NextDocumentStatus(sub.Documents[i].Status, workflow.ActStartReview, actor.Role); err == nil {
				sub.Documents[i].Status = status
			}
		}
		from := sub.SubmissionStatus
		sub.SubmissionStatus = next
		s.recordHistory(sub, from, workflow.ActStartReview, actor, "")
		return nil
	})
	recordTransition("submission", workflow.ActStartReview, err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, activity.ActionReviewStarted, sub, primitive.NilObjectID, "Started review", nil)
	s.push(sub.Vendor, realtime.Event{Type: realtime.EventReviewStarted, SubmissionID: sub.SubmissionID})
	return sub, nil
}

// ReviewDocument records a consultant decision on one document and recomputes
// the submission status in the same write.
func (s *SubmissionService) ReviewDocument(ctx context.Context, actor Actor, submissionID string, documentID primitive.ObjectID, decision workflow.DocumentStatus, remarks string) (*models.DocumentSubmission, *models.Document, error) {
	if err := requireRole(actor, workflow.RoleConsultant, workflow.RoleAdmin); err != nil {
		return nil, nil, err
	}
	action, ok := workflow.ReviewDecision(decision)
	if !ok {
		action = workflow.Action("review")
	}
	remarks = strings.TrimSpace(remarks)

	var doc models.Document
	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		idx := sub.FindDocument(documentID)
		if idx < 0 {
			return workflow.NotFound("Document not found")
		}
		next, err := workflow.ReviewDocument(sub.Documents[idx].Status, decision, remarks, actor.Role)
		if err != nil {
			return err
		}
		switch {
		case sub.SubmissionStatus == workflow.SubDraft:
			return workflow.Conflict("Submission has not been submitted for review")
		case sub.SubmissionStatus.Finalized():
			return workflow.Conflict("Submission has already been finalized")
		}

		now := s.now()
		reviewer := actor.ID
		d := &sub.Documents[idx]
		d.Status = next
		d.ConsultantRemarks = remarks
		d.ReviewDate = &now
		d.ReviewedBy = &reviewer
		doc = *d

		from := sub.SubmissionStatus
		sub.SubmissionStatus = workflow.RecomputeSubmissionStatus(sub.SubmissionStatus, sub.DocumentStatuses())
		s.recordHistory(sub, from, action, actor, "")
		return nil
	})
	recordTransition("document", action, err)
	if err != nil {
		return nil, nil, err
	}

	s.record(ctx, actor, activity.ActionDocumentReviewed, sub, doc.ID,
		fmt.Sprintf("Marked %s as %s", doc.DocumentType, doc.Status),
		map[string]interface{}{"status": string(doc.Status), "remarks": remarks})
	s.push(sub.Vendor, realtime.Event{
		Type:         realtime.EventDocumentReviewed,
		SubmissionID: sub.SubmissionID,
		DocumentID:   doc.ID.Hex(),
		Data:         map[string]interface{}{"status": doc.Status, "remarks": remarks, "submissionStatus": sub.SubmissionStatus},
	})

	if doc.Status == workflow.DocRejected && s.notifier != nil {
		snapshot := sub.Clone()
		s.background(ctx, "document_rejected", func(ctx context.Context) error {
			return s.notifier.SendDocumentRejectionNotification(ctx, snapshot, doc, s.user(ctx, snapshot.Vendor), s.user(ctx, actor.ID))
		})
	}
	return sub, &doc, nil
}

// FinalizeSubmission closes the review once every document has a decision.
// Concurrent finalizations serialize on the submission version; the loser sees
// the finalized state and fails with a conflict.
func (s *SubmissionService) FinalizeSubmission(ctx context.Context, actor Actor, submissionID string, isApproved bool, remarks string) (*models.DocumentSubmission, error) {
	if err := requireRole(actor, workflow.RoleConsultant, workflow.RoleAdmin); err != nil {
		return nil, err
	}
	remarks = strings.TrimSpace(remarks)
	action := workflow.ActFinalizeReject
	if isApproved {
		action = workflow.ActFinalizeApprove
	}

	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		next, err := workflow.Finalize(sub.SubmissionStatus, sub.DocumentStatuses(), isApproved, remarks, actor.Role)
		if err != nil {
			return err
		}
		now := s.now()
		approver := actor.ID
		from := sub.SubmissionStatus
		sub.SubmissionStatus = next
		sub.ConsultantApproval = models.ConsultantApproval{
			IsApproved:   isApproved,
			ApprovalDate: &now,
			Remarks:      remarks,
			ApprovedBy:   &approver,
		}
		s.recordHistory(sub, from, action, actor, remarks)
		return nil
	})
	recordTransition("submission", action, err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, activity.ActionSubmissionFinalized, sub, primitive.NilObjectID,
		fmt.Sprintf("Finalized submission as %s", sub.SubmissionStatus),
		map[string]interface{}{"isApproved": isApproved, "remarks": remarks})
	s.push(sub.Vendor, realtime.Event{
		Type:         realtime.EventSubmissionFinalized,
		SubmissionID: sub.SubmissionID,
		Data:         map[string]interface{}{"submissionStatus": sub.SubmissionStatus, "isApproved": isApproved},
	})
	if s.notifier != nil {
		snapshot := sub.Clone()
		s.background(ctx, "submission_finalized", func(ctx context.Context) error {
			return s.notifier.SendSubmissionFinalizedNotification(ctx, snapshot, s.user(ctx, snapshot.Vendor), s.user(ctx, actor.ID))
		})
	}
	return sub, nil
}

// ResubmitResult describes a resubmission. Created is set when no existing
// entry matched and a new document was appended.
type ResubmitResult struct {
	Submission *models.DocumentSubmission
	Document   models.Document
	Created    bool
}

// ResubmitDocument replaces the file of a rejected document. When documentID
// does not match an entry, the entry of documentType is used instead, and
// failing that a new resubmitted entry is appended. A finalized submission is
// reopened for review.
func (s *SubmissionService) ResubmitDocument(ctx context.Context, actor Actor, submissionID, documentID string, in UploadInput) (*ResubmitResult, error) {
	if err := requireRole(actor, workflow.RoleVendor); err != nil {
		return nil, err
	}
	if err := s.validateFile(in); err != nil {
		return nil, err
	}
	docID, idErr := primitive.ObjectIDFromHex(documentID)

	current, err := s.load(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	if idErr != nil || current.FindDocument(docID) < 0 {
		if !workflow.IsKnownDocumentType(in.DocumentType) {
			return nil, workflow.NotFound("Document not found")
		}
		if current.FindDocumentByType(in.DocumentType) < 0 {
			if err := s.checkOneTime(ctx, current, in.DocumentType); err != nil {
				return nil, err
			}
		}
	}

	stored, cleanup, err := s.storeFile(ctx, in)
	if err != nil {
		return nil, err
	}

	var (
		doc          models.Document
		created      bool
		replacedPath string
	)
	sub, err := s.update(ctx, actor, submissionID, func(sub *models.DocumentSubmission) error {
		if sub.SubmissionStatus == workflow.SubDraft {
			return workflow.Conflict("Submission has not been submitted yet; upload the document instead")
		}

		idx := -1
		if idErr == nil {
			idx = sub.FindDocument(docID)
		}
		if idx < 0 && workflow.IsKnownDocumentType(in.DocumentType) {
			idx = sub.FindDocumentByType(in.DocumentType)
		}
		created = false
		replacedPath = ""
		now := s.now()

		if idx < 0 {
			if !workflow.IsKnownDocumentType(in.DocumentType) {
				return workflow.NotFound("Document not found")
			}
			created = true
			doc = models.Document{
				ID:                primitive.NewObjectID(),
				DocumentType:      in.DocumentType,
				DocumentName:      firstNonEmpty(in.DocumentName, in.FileName),
				FileName:          in.FileName,
				FilePath:          stored.Path,
				FileSize:          stored.Size,
				ContentType:       in.ContentType,
				Status:            workflow.DocResubmitted,
				IsMandatory:       workflow.IsMandatory(in.DocumentType, sub.UploadPeriod.Month),
				UploadDate:        now,
				ResubmissionCount: 1,
			}
			sub.Documents = append(sub.Documents, doc)
		} else {
			d := &sub.Documents[idx]
			next, err := workflow.NextDocumentStatus(d.Status, workflow.ActResubmit, actor.Role)
			if err != nil {
				return err
			}
			replacedPath = d.FilePath
			d.Status = next
			d.FileName = in.FileName
			d.FilePath = stored.Path
			d.FileSize = stored.Size
			d.ContentType = in.ContentType
			d.UploadDate = now
			d.ResubmissionCount++
			if name := strings.TrimSpace(in.DocumentName); name != "" {
				d.DocumentName = name
			}
			doc = *d
		}

		from := sub.SubmissionStatus
		if from.Finalized() {
			next, err := workflow.NextSubmissionStatus(from, workflow.ActReopen, actor.Role)
			if err != nil {
				return err
			}
			sub.SubmissionStatus = next
			sub.ConsultantApproval = models.ConsultantApproval{}
			s.recordHistory(sub, from, workflow.ActReopen, actor, "")
			return nil
		}
		sub.SubmissionStatus = workflow.RecomputeSubmissionStatus(from, sub.DocumentStatuses())
		s.recordHistory(sub, from, workflow.ActResubmit, actor, "")
		return nil
	})
	recordTransition("document", workflow.ActResubmit, err)
	if err != nil {
		cleanup()
		return nil, err
	}

	log := logger.FromContext(ctx)
	if created {
		log.Warn("resubmitted document had no existing entry, created a new one",
			zap.String("submission_id", sub.SubmissionID),
			zap.String("requested_document_id", documentID),
			zap.String("document_type", string(doc.DocumentType)))
	}

	metrics.RecordUpload(stored.Size)
	s.removeFile(ctx, replacedPath)
	s.record(ctx, actor, activity.ActionDocumentResubmitted, sub, doc.ID,
		fmt.Sprintf("Resubmitted %s", doc.DocumentType),
		map[string]interface{}{"fileName": doc.FileName, "created": created, "resubmissionCount": doc.ResubmissionCount})

	if vendor := s.user(ctx, sub.Vendor); vendor != nil && vendor.AssignedConsultant != nil {
		s.push(*vendor.AssignedConsultant, realtime.Event{
			Type:         realtime.EventDocumentResubmitted,
			SubmissionID: sub.SubmissionID,
			DocumentID:   doc.ID.Hex(),
			Data:         map[string]interface{}{"documentType": doc.DocumentType, "submissionStatus": sub.SubmissionStatus},
		})
	}
	return &ResubmitResult{Submission: sub, Document: doc, Created: created}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (s *SubmissionService) GetSubmission(ctx context.Context, actor Actor, submissionID string) (*models.DocumentSubmission, error) {
	return s.load(ctx, actor, submissionID)
}

// ListForVendor returns the caller's own submissions, optionally for one year.
func (s *SubmissionService) ListForVendor(ctx context.Context, actor Actor, year int) ([]models.DocumentSubmission, error) {
	if err := requireRole(actor, workflow.RoleVendor); err != nil {
		return nil, err
	}
	vendorID := actor.ID
	subs, err := s.subs.List(ctx, store.SubmissionFilter{VendorID: &vendorID, Year: year})
	if err != nil {
		return nil, fmt.Errorf("list vendor submissions: %w", err)
	}
	return subs, nil
}

type ReviewFilter struct {
	Year     int
	Month    string
	Status   string
	VendorID *primitive.ObjectID
}

// ListForConsultant returns submissions the reviewer may see. Consultants are
// limited to their assigned vendors; admins see everything.
func (s *SubmissionService) ListForConsultant(ctx context.Context, actor Actor, f ReviewFilter) ([]models.DocumentSubmission, error) {
	if err := requireRole(actor, workflow.RoleConsultant, workflow.RoleAdmin); err != nil {
		return nil, err
	}

	filter := store.SubmissionFilter{Year: f.Year, VendorID: f.VendorID}
	if f.Month != "" {
		m, ok := workflow.ParseMonth(f.Month)
		if !ok {
			return nil, workflow.Validation("Invalid month %q", f.Month)
		}
		filter.Month = m
	}
	if f.Status != "" {
		status := workflow.SubmissionStatus(f.Status)
		if !status.Valid() {
			return nil, workflow.Validation("Invalid status %q", f.Status)
		}
		filter.Status = status
	}

	if actor.Role == workflow.RoleConsultant {
		vendors, err := s.users.VendorsForConsultant(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("list assigned vendors: %w", err)
		}
		filter.Vendors = make([]primitive.ObjectID, 0, len(vendors))
		for _, v := range vendors {
			filter.Vendors = append(filter.Vendors, v.ID)
		}
		if f.VendorID != nil && !containsID(filter.Vendors, *f.VendorID) {
			return nil, workflow.Forbidden("This vendor is not assigned to you")
		}
	}

	subs, err := s.subs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
