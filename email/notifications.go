package email

import (
	"context"
	"fmt"
	"strings"

	"vendorcompliance/models"
)

func displayName(u *models.User) string {
	if u == nil {
		return "Consultant"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func period(sub *models.DocumentSubmission) string {
	return fmt.Sprintf("%s %d", sub.UploadPeriod.Month, sub.UploadPeriod.Year)
}

// SendDocumentRejectionNotification tells the vendor which document was rejected and why.
func (m *Mailer) SendDocumentRejectionNotification(ctx context.Context, sub *models.DocumentSubmission, doc models.Document, vendor, reviewer *models.User) error {
	if vendor == nil {
		return fmt.Errorf("email: vendor is required")
	}
	subject := fmt.Sprintf("Document rejected: %s (%s)", doc.DocumentType, period(sub))

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", displayName(vendor))
	fmt.Fprintf(&b, "Your document %q (%s) for %s was rejected by %s.\n\n", doc.DocumentName, doc.DocumentType, period(sub), displayName(reviewer))
	fmt.Fprintf(&b, "Remarks: %s\n\n", doc.ConsultantRemarks)
	fmt.Fprintf(&b, "Please upload a corrected document: %s/submissions/%s\n", m.appURL, sub.SubmissionID)

	return m.Send(ctx, Message{
		To:      vendor.Email,
		ToName:  displayName(vendor),
		Subject: subject,
		Body:    b.String(),
		Params: map[string]string{
			"document_type":   string(doc.DocumentType),
			"document_name":   doc.DocumentName,
			"remarks":         doc.ConsultantRemarks,
			"consultant_name": displayName(reviewer),
			"submission_id":   sub.SubmissionID,
			"period":          period(sub),
		},
	})
}

// SendSubmissionReceivedNotification tells the assigned consultant a submission is waiting.
func (m *Mailer) SendSubmissionReceivedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, consultant *models.User) error {
	if consultant == nil {
		return fmt.Errorf("email: consultant is required")
	}
	vendorName := displayName(vendor)
	if vendor != nil && vendor.Company != "" {
		vendorName = vendor.Company
	}

	body := fmt.Sprintf("Dear %s,\n\n%s submitted %d documents for %s.\n\nReview: %s/review/%s\n",
		displayName(consultant), vendorName, len(sub.Documents), period(sub), m.appURL, sub.SubmissionID)

	return m.Send(ctx, Message{
		To:      consultant.Email,
		ToName:  displayName(consultant),
		Subject: fmt.Sprintf("New submission from %s (%s)", vendorName, period(sub)),
		Body:    body,
		Params: map[string]string{
			"vendor_name":   vendorName,
			"submission_id": sub.SubmissionID,
			"period":        period(sub),
		},
	})
}

// SendSubmissionFinalizedNotification carries the consultant's final decision to the vendor.
func (m *Mailer) SendSubmissionFinalizedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, reviewer *models.User) error {
	if vendor == nil {
		return fmt.Errorf("email: vendor is required")
	}
	decision := "rejected"
	if sub.ConsultantApproval.IsApproved {
		decision = "approved"
	}

	body := fmt.Sprintf("Dear %s,\n\nYour submission %s for %s was %s by %s.\n\nRemarks: %s\n",
		displayName(vendor), sub.SubmissionID, period(sub), decision, displayName(reviewer), sub.ConsultantApproval.Remarks)

	return m.Send(ctx, Message{
		To:      vendor.Email,
		ToName:  displayName(vendor),
		Subject: fmt.Sprintf("Submission %s %s", sub.SubmissionID, decision),
		Body:    body,
		Params: map[string]string{
			"decision":      decision,
			"remarks":       sub.ConsultantApproval.Remarks,
			"submission_id": sub.SubmissionID,
			"period":        period(sub),
		},
	})
}
