package workflow

// DeriveOverallStatus computes the display status of a submission from its document
// statuses. Precedence, highest first:
//
//  1. any resubmitted                                  -> in_progress
//  2. any rejected or requires_resubmission            -> pending
//  3. all approved (or fully_approved)                 -> approved
//  4. any pending, under_review, submitted, in_progress -> in_progress
//  5. otherwise                                        -> in_progress
//
// Statuses are compared as strings so legacy values stored by older clients
// ("submitted", "fully_approved", "in_progress") derive the same way.
func DeriveOverallStatus(statuses []DocumentStatus) OverallStatus {
	if len(statuses) == 0 {
		return OverallInProgress
	}

	allApproved := true
	anyRejected := false
	for _, s := range statuses {
		switch s {
		case DocResubmitted:
			return OverallInProgress
		case DocRejected, DocRequiresResubmission:
			anyRejected = true
		}
		if s != DocApproved && s != "fully_approved" {
			allApproved = false
		}
	}

	switch {
	case anyRejected:
		return OverallPending
	case allApproved:
		return OverallApproved
	default:
		return OverallInProgress
	}
}

// RecomputeSubmissionStatus returns the persisted submission status after a document
// decision. Draft and finalized submissions keep their status.
func RecomputeSubmissionStatus(current SubmissionStatus, statuses []DocumentStatus) SubmissionStatus {
	if current == SubDraft || current.Finalized() {
		return current
	}

	anyApproved := false
	anyRejected := false
	for _, s := range statuses {
		switch s {
		case DocResubmitted:
			return SubUnderReview
		case DocRejected, DocRequiresResubmission:
			anyRejected = true
		case DocApproved:
			anyApproved = true
		}
	}

	switch {
	case anyRejected:
		return SubRequiresResubmission
	case anyApproved:
		return SubPartiallyApproved
	default:
		return SubUnderReview
	}
}
