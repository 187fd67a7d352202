package workflow

import "strings"

// Action names a workflow step on a document or a submission.
type Action string

const (
	ActUpload              Action = "upload"
	ActStartReview         Action = "start_review"
	ActApprove             Action = "approve"
	ActReject              Action = "reject"
	ActRequestResubmission Action = "request_resubmission"
	ActResubmit            Action = "resubmit"

	ActSubmit          Action = "submit"
	ActFinalizeApprove Action = "finalize_approve"
	ActFinalizeReject  Action = "finalize_reject"
	ActReopen          Action = "reopen"
)

var (
	vendorOnly = []Role{RoleVendor}
	reviewers  = []Role{RoleConsultant, RoleAdmin}
)

type documentRule struct {
	from  []DocumentStatus
	roles []Role
	to    DocumentStatus
}

type submissionRule struct {
	from  []SubmissionStatus
	roles []Role
	to    SubmissionStatus
}

// reviewable are the document states a consultant may decide on. A decision can be
// revised until the submission is finalized.
var reviewable = []DocumentStatus{
	DocUploaded, DocUnderReview, DocResubmitted,
	DocApproved, DocRejected, DocRequiresResubmission,
}

var documentRules = map[Action]documentRule{
	ActUpload:              {from: []DocumentStatus{DocPending, DocUploaded}, roles: vendorOnly, to: DocUploaded},
	ActStartReview:         {from: []DocumentStatus{DocUploaded, DocResubmitted}, roles: reviewers, to: DocUnderReview},
	ActApprove:             {from: reviewable, roles: reviewers, to: DocApproved},
	ActReject:              {from: reviewable, roles: reviewers, to: DocRejected},
	ActRequestResubmission: {from: reviewable, roles: reviewers, to: DocRequiresResubmission},
	ActResubmit:            {from: []DocumentStatus{DocRejected, DocRequiresResubmission}, roles: vendorOnly, to: DocResubmitted},
}

var inReview = []SubmissionStatus{SubSubmitted, SubUnderReview, SubPartiallyApproved, SubRequiresResubmission}

var submissionRules = map[Action]submissionRule{
	ActSubmit:          {from: []SubmissionStatus{SubDraft}, roles: vendorOnly, to: SubSubmitted},
	ActStartReview:     {from: []SubmissionStatus{SubSubmitted}, roles: reviewers, to: SubUnderReview},
	ActFinalizeApprove: {from: inReview, roles: reviewers, to: SubFullyApproved},
	ActFinalizeReject:  {from: inReview, roles: reviewers, to: SubRejected},
	ActReopen:          {from: []SubmissionStatus{SubFullyApproved, SubRejected}, roles: vendorOnly, to: SubUnderReview},
}

// NextDocumentStatus applies action to a document in state current on behalf of role.
func NextDocumentStatus(current DocumentStatus, action Action, role Role) (DocumentStatus, error) {
	rule, ok := documentRules[action]
	if !ok {
		return current, Validation("unknown document action %q", action)
	}
	if !hasRole(rule.roles, role) {
		return current, Forbidden("role %q cannot %s a document", role, humanize(action))
	}
	if current == DocPending && action != ActUpload {
		return current, Validation("Document has not been uploaded yet")
	}
	if !hasDocStatus(rule.from, current) {
		return current, Conflict("cannot %s a document with status %s", humanize(action), current)
	}
	return rule.to, nil
}

// NextSubmissionStatus applies action to a submission in state current on behalf of role.
func NextSubmissionStatus(current SubmissionStatus, action Action, role Role) (SubmissionStatus, error) {
	rule, ok := submissionRules[action]
	if !ok {
		return current, Validation("unknown submission action %q", action)
	}
	if !hasRole(rule.roles, role) {
		return current, Forbidden("role %q cannot %s a submission", role, humanize(action))
	}
	if !hasSubStatus(rule.from, current) {
		return current, Conflict("cannot %s a submission with status %s", humanize(action), current)
	}
	return rule.to, nil
}

// ReviewDecision maps a requested document status to its review action.
func ReviewDecision(status DocumentStatus) (Action, bool) {
	switch status {
	case DocApproved:
		return ActApprove, true
	case DocRejected:
		return ActReject, true
	case DocRequiresResubmission:
		return ActRequestResubmission, true
	}
	return "", false
}

// ReviewDocument validates a consultant decision on one document and returns the
// document's next status. Nothing is returned for the caller to persist on error.
func ReviewDocument(current DocumentStatus, decision DocumentStatus, remarks string, role Role) (DocumentStatus, error) {
	if !role.IsReviewer() {
		return current, Forbidden("Only consultants or admins can review documents")
	}
	action, ok := ReviewDecision(decision)
	if !ok {
		return current, Validation("Invalid status %q: must be approved, rejected or requires_resubmission", decision)
	}
	if strings.TrimSpace(remarks) == "" {
		return current, Validation(MsgRemarksRequired)
	}
	return NextDocumentStatus(current, action, role)
}

// Finalize validates the consultant's final decision on a submission whose documents
// currently hold docs, and returns the submission's next status.
func Finalize(current SubmissionStatus, docs []DocumentStatus, isApproved bool, remarks string, role Role) (SubmissionStatus, error) {
	if !role.IsReviewer() {
		return current, Forbidden("Only consultants or admins can finalize submissions")
	}
	if len(docs) == 0 {
		return current, Validation("Submission has no documents to review")
	}
	for _, s := range docs {
		if !s.Reviewed() {
			return current, Validation(MsgDocumentsUnreviewed)
		}
	}
	if strings.TrimSpace(remarks) == "" {
		return current, Validation(MsgFinalRemarksRequired)
	}
	action := ActFinalizeReject
	if isApproved {
		action = ActFinalizeApprove
	}
	return NextSubmissionStatus(current, action, role)
}

func humanize(a Action) string {
	return strings.ReplaceAll(string(a), "_", " ")
}

func hasRole(roles []Role, r Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func hasDocStatus(list []DocumentStatus, s DocumentStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func hasSubStatus(list []SubmissionStatus, s SubmissionStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
