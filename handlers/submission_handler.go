package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/config"
	"vendorcompliance/models"
	"vendorcompliance/service"
	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

// submissionView adds the derived fields clients display.
type submissionView struct {
	*models.DocumentSubmission
	OverallStatus      workflow.OverallStatus  `json:"overallStatus"`
	MandatoryDocuments []workflow.DocumentType `json:"mandatoryDocuments"`
}

func viewOf(sub *models.DocumentSubmission) submissionView {
	return submissionView{
		DocumentSubmission: sub,
		OverallStatus:      sub.OverallStatus(),
		MandatoryDocuments: workflow.ResolveMandatory(sub.UploadPeriod.Month).Mandatory,
	}
}

func viewsOf(subs []models.DocumentSubmission) []submissionView {
	out := make([]submissionView, len(subs))
	for i := range subs {
		out[i] = viewOf(&subs[i])
	}
	return out
}

// CreateSubmission handles POST /api/document-submissions
var CreateSubmission = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	var req struct {
		Year  int    `json:"year"`
		Month string `json:"month"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	sub, created, err := submissionService.CreateSubmission(r.Context(), actor, req.Year, req.Month)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.RespondWithJSON(w, status, map[string]interface{}{
		"success":    true,
		"created":    created,
		"submission": viewOf(sub),
	})
})

// GetVendorSubmissions handles GET /api/document-submissions/vendor/submissions?year
var GetVendorSubmissions = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	year, err := queryInt(r, "year")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	subs, err := submissionService.ListForVendor(r.Context(), actor, year)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       len(subs),
		"submissions": viewsOf(subs),
	})
})

// GetConsultantSubmissions handles GET /api/document-submissions/consultant/submissions
var GetConsultantSubmissions = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	q := r.URL.Query()
	year, err := queryInt(r, "year")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	filter := service.ReviewFilter{Year: year, Month: q.Get("month"), Status: q.Get("status")}
	if v := q.Get("vendorId"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid vendorId")
			return
		}
		filter.VendorID = &id
	}

	subs, err := submissionService.ListForConsultant(r.Context(), actor, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       len(subs),
		"submissions": viewsOf(subs),
	})
})

// GetSubmission handles GET /api/document-submissions/{submissionId}
var GetSubmission = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	sub, err := submissionService.GetSubmission(r.Context(), actor, mux.Vars(r)["submissionId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "submission": viewOf(sub)})
})

// readUpload parses the multipart form and returns the file part.
func readUpload(w http.ResponseWriter, r *http.Request) (service.UploadInput, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.UploadInput{}, nil, workflow.Validation("File too large. Maximum size is %dMB", config.MaxUploadSize>>20)
		}
		return service.UploadInput{}, nil, workflow.Validation("Invalid multipart form")
	}

	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		f, header, err = r.FormFile("document")
	}
	if err != nil {
		return service.UploadInput{}, nil, workflow.Validation("No file uploaded")
	}

	in := service.UploadInput{
		DocumentType: workflow.DocumentType(r.FormValue("documentType")),
		DocumentName: r.FormValue("documentName"),
		FileName:     header.Filename,
		ContentType:  contentType(header),
		Size:         header.Size,
		Body:         f,
	}
	return in, func() { f.Close() }, nil
}

func contentType(h *multipart.FileHeader) string {
	if ct := h.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// UploadDocument handles POST /api/document-submissions/{submissionId}/documents
var UploadDocument = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	in, closeFile, err := readUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer closeFile()

	sub, doc, err := submissionService.UploadDocument(r.Context(), actor, mux.Vars(r)["submissionId"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Document uploaded successfully",
		"document":   doc,
		"submission": viewOf(sub),
	})
})

// SubmitSubmission handles POST /api/document-submissions/{submissionId}/submit
var SubmitSubmission = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	sub, err := submissionService.SubmitForReview(r.Context(), actor, mux.Vars(r)["submissionId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Submission sent for review",
		"submission": viewOf(sub),
	})
})

// StartReview handles POST /api/document-submissions/{submissionId}/start-review
var StartReview = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	sub, err := submissionService.StartReview(r.Context(), actor, mux.Vars(r)["submissionId"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "submission": viewOf(sub)})
})

// UpdateDocumentStatus handles POST .../documents/{documentId}/status
var UpdateDocumentStatus = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	vars := mux.Vars(r)
	docID, err := primitive.ObjectIDFromHex(vars["documentId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req struct {
		Status  string `json:"status"`
		Remarks string `json:"remarks"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	sub, doc, err := submissionService.ReviewDocument(r.Context(), actor, vars["submissionId"], docID, workflow.DocumentStatus(req.Status), req.Remarks)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Document " + string(doc.Status),
		"document":   doc,
		"submission": viewOf(sub),
	})
})

// FinalApproval handles POST /api/document-submissions/{submissionId}/final-approval
var FinalApproval = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	var req struct {
		IsApproved *bool  `json:"isApproved"`
		Remarks    string `json:"remarks"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.IsApproved == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "isApproved is required")
		return
	}

	sub, err := submissionService.FinalizeSubmission(r.Context(), actor, mux.Vars(r)["submissionId"], *req.IsApproved, req.Remarks)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Submission " + string(sub.SubmissionStatus),
		"submission": viewOf(sub),
	})
})

// ResubmitDocument handles POST .../documents/{documentId}/resubmit
var ResubmitDocument = withActor(func(w http.ResponseWriter, r *http.Request, actor service.Actor) {
	in, closeFile, err := readUpload(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer closeFile()

	vars := mux.Vars(r)
	res, err := submissionService.ResubmitDocument(r.Context(), actor, vars["submissionId"], vars["documentId"], in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Document resubmitted successfully",
		"created":    res.Created,
		"document":   res.Document,
		"submission": viewOf(res.Submission),
	})
})
