package workflow

// DocumentStatus is the review state of one embedded document.
type DocumentStatus string

const (
	DocPending              DocumentStatus = "pending"
	DocUploaded             DocumentStatus = "uploaded"
	DocUnderReview          DocumentStatus = "under_review"
	DocApproved             DocumentStatus = "approved"
	DocRejected             DocumentStatus = "rejected"
	DocResubmitted          DocumentStatus = "resubmitted"
	DocRequiresResubmission DocumentStatus = "requires_resubmission"
)

// SubmissionStatus is the persisted state of a whole submission.
type SubmissionStatus string

const (
	SubDraft                SubmissionStatus = "draft"
	SubSubmitted            SubmissionStatus = "submitted"
	SubUnderReview          SubmissionStatus = "under_review"
	SubPartiallyApproved    SubmissionStatus = "partially_approved"
	SubFullyApproved        SubmissionStatus = "fully_approved"
	SubRejected             SubmissionStatus = "rejected"
	SubRequiresResubmission SubmissionStatus = "requires_resubmission"
)

// OverallStatus is the display status derived from document statuses.
type OverallStatus string

const (
	OverallInProgress OverallStatus = "in_progress"
	OverallPending    OverallStatus = "pending"
	OverallApproved   OverallStatus = "approved"
)

// Role is the caller's role claim.
type Role string

const (
	RoleVendor     Role = "vendor"
	RoleConsultant Role = "consultant"
	RoleAdmin      Role = "admin"
)

// ParseRole accepts the three known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleVendor, RoleConsultant, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsReviewer reports whether the role may review documents.
func (r Role) IsReviewer() bool {
	return r == RoleConsultant || r == RoleAdmin
}

var documentStatuses = []DocumentStatus{
	DocPending, DocUploaded, DocUnderReview, DocApproved,
	DocRejected, DocResubmitted, DocRequiresResubmission,
}

var submissionStatuses = []SubmissionStatus{
	SubDraft, SubSubmitted, SubUnderReview, SubPartiallyApproved,
	SubFullyApproved, SubRejected, SubRequiresResubmission,
}

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	for _, v := range documentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Reviewed reports whether a consultant decision has been recorded.
func (s DocumentStatus) Reviewed() bool {
	return s == DocApproved || s == DocRejected
}

// Valid reports whether s is a known submission status.
func (s SubmissionStatus) Valid() bool {
	for _, v := range submissionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Finalized reports whether the consultant has closed the submission.
func (s SubmissionStatus) Finalized() bool {
	return s == SubFullyApproved || s == SubRejected
}

// InReview reports whether the submission has left the vendor and is open for review.
func (s SubmissionStatus) InReview() bool {
	switch s {
	case SubSubmitted, SubUnderReview, SubPartiallyApproved, SubRequiresResubmission:
		return true
	}
	return false
}
