// models/submission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/workflow"
)

type UploadPeriod struct {
	Year  int    `bson:"year" json:"year"`
	Month string `bson:"month" json:"month"` // Jan..Dec
}

type ConsultantApproval struct {
	IsApproved   bool                `bson:"isApproved" json:"isApproved"`
	ApprovalDate *time.Time          `bson:"approvalDate,omitempty" json:"approvalDate,omitempty"`
	Remarks      string              `bson:"remarks,omitempty" json:"remarks,omitempty"`
	ApprovedBy   *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
}

// Document is embedded in a DocumentSubmission and carries its own _id.
type Document struct {
	ID                primitive.ObjectID      `bson:"_id" json:"_id"`
	DocumentType      workflow.DocumentType   `bson:"documentType" json:"documentType"`
	DocumentName      string                  `bson:"documentName" json:"documentName"`
	FileName          string                  `bson:"fileName" json:"fileName"`
	FilePath          string                  `bson:"filePath" json:"filePath"`
	FileSize          int64                   `bson:"fileSize,omitempty" json:"fileSize,omitempty"`
	ContentType       string                  `bson:"contentType,omitempty" json:"contentType,omitempty"`
	Status            workflow.DocumentStatus `bson:"status" json:"status"`
	ConsultantRemarks string                  `bson:"consultantRemarks,omitempty" json:"consultantRemarks,omitempty"`
	IsMandatory       bool                    `bson:"isMandatory" json:"isMandatory"`
	UploadDate        time.Time               `bson:"uploadDate" json:"uploadDate"`
	ReviewDate        *time.Time              `bson:"reviewDate,omitempty" json:"reviewDate,omitempty"`
	ReviewedBy        *primitive.ObjectID     `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ResubmissionCount int                     `bson:"resubmissionCount" json:"resubmissionCount"`
}

type StatusChange struct {
	From    workflow.SubmissionStatus `bson:"from" json:"from"`
	To      workflow.SubmissionStatus `bson:"to" json:"to"`
	Action  workflow.Action           `bson:"action" json:"action"`
	By      primitive.ObjectID        `bson:"by" json:"by"`
	Role    workflow.Role             `bson:"role" json:"role"`
	Remarks string                    `bson:"remarks,omitempty" json:"remarks,omitempty"`
	At      time.Time                 `bson:"at" json:"at"`
}

type DocumentSubmission struct {
	ID                 primitive.ObjectID        `bson:"_id,omitempty" json:"id"`
	SubmissionID       string                    `bson:"submissionId" json:"submissionId"`
	Vendor             primitive.ObjectID        `bson:"vendor" json:"vendor"`
	UploadPeriod       UploadPeriod              `bson:"uploadPeriod" json:"uploadPeriod"`
	Documents          []Document                `bson:"documents" json:"documents"`
	SubmissionStatus   workflow.SubmissionStatus `bson:"submissionStatus" json:"submissionStatus"`
	ConsultantApproval ConsultantApproval        `bson:"consultantApproval" json:"consultantApproval"`
	StatusHistory      []StatusChange            `bson:"statusHistory,omitempty" json:"statusHistory,omitempty"`
	Version            int64                     `bson:"version" json:"version"`
	SubmissionDate     *time.Time                `bson:"submissionDate,omitempty" json:"submissionDate,omitempty"`
	LastModifiedDate   time.Time                 `bson:"lastModifiedDate" json:"lastModifiedDate"`
	CreatedAt          time.Time                 `bson:"createdAt" json:"createdAt"`
}

// FindDocument returns the index of the embedded document with id, or -1.
func (s *DocumentSubmission) FindDocument(id primitive.ObjectID) int {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return i
		}
	}
	return -1
}

// FindDocumentByType returns the index of the embedded document of type t, or -1.
func (s *DocumentSubmission) FindDocumentByType(t workflow.DocumentType) int {
	for i := range s.Documents {
		if s.Documents[i].DocumentType == t {
			return i
		}
	}
	return -1
}

// DocumentStatuses lists the status of every embedded document in order.
func (s *DocumentSubmission) DocumentStatuses() []workflow.DocumentStatus {
	out := make([]workflow.DocumentStatus, len(s.Documents))
	for i, d := range s.Documents {
		out[i] = d.Status
	}
	return out
}

// DocumentTypes lists the type of every embedded document in order.
func (s *DocumentSubmission) DocumentTypes() []workflow.DocumentType {
	out := make([]workflow.DocumentType, len(s.Documents))
	for i, d := range s.Documents {
		out[i] = d.DocumentType
	}
	return out
}

// OverallStatus is the display status derived from the documents.
func (s *DocumentSubmission) OverallStatus() workflow.OverallStatus {
	return workflow.DeriveOverallStatus(s.DocumentStatuses())
}

// Clone returns a deep copy safe to mutate.
func (s *DocumentSubmission) Clone() *DocumentSubmission {
	c := *s
	if s.Documents != nil {
		c.Documents = make([]Document, len(s.Documents))
		copy(c.Documents, s.Documents)
	}
	if s.StatusHistory != nil {
		c.StatusHistory = make([]StatusChange, len(s.StatusHistory))
		copy(c.StatusHistory, s.StatusHistory)
	}
	return &c
}
