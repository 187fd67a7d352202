package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/activity"
	"vendorcompliance/filestore"
	"vendorcompliance/models"
	"vendorcompliance/realtime"
	"vendorcompliance/store"
	"vendorcompliance/workflow"
)

type fakeFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func (f *fakeFiles) Save(ctx context.Context, name, contentType string, r io.Reader) (filestore.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return filestore.StoredFile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	path := fmt.Sprintf("/uploads/%d-%s", f.seq, name)
	f.files[path] = data
	return filestore.StoredFile{Path: path, Size: int64(len(data))}, nil
}

func (f *fakeFiles) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeNotifier struct {
	mu        sync.Mutex
	rejected  []models.Document
	received  int
	finalized int
	fail      bool
}

func (n *fakeNotifier) SendDocumentRejectionNotification(ctx context.Context, sub *models.DocumentSubmission, doc models.Document, vendor, reviewer *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, doc)
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (n *fakeNotifier) SendSubmissionReceivedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, consultant *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received++
	return nil
}

func (n *fakeNotifier) SendSubmissionFinalizedNotification(ctx context.Context, sub *models.DocumentSubmission, vendor, reviewer *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finalized++
	return nil
}

type fakePusher struct {
	mu     sync.Mutex
	events map[string][]realtime.Event
}

func (p *fakePusher) Notify(userID string, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], event)
}

func (p *fakePusher) typesFor(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events[userID] {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc        *SubmissionService
	mem        *store.MemoryStore
	files      *fakeFiles
	notifier   *fakeNotifier
	pusher     *fakePusher
	vendor     Actor
	consultant Actor
	stranger   Actor
	admin      Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()

	consultant := &models.User{Name: "Consultant", Email: "c@example.com", Role: "consultant", IsActive: true}
	stranger := &models.User{Name: "Other", Email: "o@example.com", Role: "consultant", IsActive: true}
	admin := &models.User{Name: "Admin", Email: "a@example.com", Role: "admin", IsActive: true}
	vendor := &models.User{Name: "Acme", Email: "v@example.com", Role: "vendor", IsActive: true}
	for _, u := range []*models.User{consultant, stranger, admin, vendor} {
		if err := mem.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := mem.AssignConsultant(ctx, vendor.ID, consultant.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	f := &fixture{
		mem:        mem,
		files:      &fakeFiles{files: map[string][]byte{}},
		notifier:   &fakeNotifier{},
		pusher:     &fakePusher{events: map[string][]realtime.Event{}},
		vendor:     Actor{ID: vendor.ID, Role: workflow.RoleVendor},
		consultant: Actor{ID: consultant.ID, Role: workflow.RoleConsultant},
		stranger:   Actor{ID: stranger.ID, Role: workflow.RoleConsultant},
		admin:      Actor{ID: admin.ID, Role: workflow.RoleAdmin},
	}
	f.svc = NewSubmissionService(Options{
		Submissions:   mem,
		Users:         mem,
		Files:         f.files,
		Notifier:      f.notifier,
		Pusher:        f.pusher,
		Activity:      activity.NewRecorder(mem, nil),
		MaxUploadSize: 1 << 10,
	})
	return f
}

func file(docType workflow.DocumentType) UploadInput {
	return UploadInput{
		DocumentType: docType,
		DocumentName: string(docType),
		FileName:     "scan.pdf",
		ContentType:  "application/pdf",
		Size:         4,
		Body:         bytes.NewReader([]byte("%PDF")),
	}
}

func (f *fixture) draft(t *testing.T, month string, types ...workflow.DocumentType) *models.DocumentSubmission {
	t.Helper()
	ctx := context.Background()
	sub, _, err := f.svc.CreateSubmission(ctx, f.vendor, 2024, month)
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	for _, dt := range types {
		if sub, _, err = f.svc.UploadDocument(ctx, f.vendor, sub.SubmissionID, file(dt)); err != nil {
			t.Fatalf("upload %s: %v", dt, err)
		}
	}
	return sub
}

// submitted returns a July submission with every mandatory document, submitted.
func (f *fixture) submitted(t *testing.T) *models.DocumentSubmission {
	t.Helper()
	sub := f.draft(t, "Jul", workflow.ResolveMandatory("Jul").Mandatory...)
	sub, err := f.svc.SubmitForReview(context.Background(), f.vendor, sub.SubmissionID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return sub
}

func (f *fixture) reviewAll(t *testing.T, sub *models.DocumentSubmission, decision workflow.DocumentStatus) *models.DocumentSubmission {
	t.Helper()
	var err error
	for _, d := range sub.Documents {
		if sub, _, err = f.svc.ReviewDocument(context.Background(), f.consultant, sub.SubmissionID, d.ID, decision, "checked"); err != nil {
			t.Fatalf("review %s: %v", d.DocumentType, err)
		}
	}
	return sub
}

func wantKind(t *testing.T, err error, kind workflow.Kind) {
	t.Helper()
	if !workflow.IsKind(err, kind) {
		t.Fatalf("error = %v, want kind %d", err, kind)
	}
}

func TestCreateSubmissionIsGetOrCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.svc.CreateSubmission(ctx, f.vendor, 2024, "jul")
	if err != nil || !created {
		t.Fatalf("first create: %v created=%v", err, created)
	}
	if first.UploadPeriod.Month != "Jul" || first.SubmissionStatus != workflow.SubDraft {
		t.Fatalf("submission = %+v", first)
	}
	if !strings.HasPrefix(first.SubmissionID, "SUB-2024-JUL-") {
		t.Fatalf("submission id = %s", first.SubmissionID)
	}

	again, created, err := f.svc.CreateSubmission(ctx, f.vendor, 2024, "Jul")
	if err != nil || created || again.SubmissionID != first.SubmissionID {
		t.Fatalf("second create: %v created=%v id=%s", err, created, again.SubmissionID)
	}
}

func TestCreateSubmissionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateSubmission(ctx, f.vendor, 2024, "July")
	wantKind(t, err, workflow.KindValidation)

	_, _, err = f.svc.CreateSubmission(ctx, f.vendor, 1990, "Jul")
	wantKind(t, err, workflow.KindValidation)

	_, _, err = f.svc.CreateSubmission(ctx, f.consultant, 2024, "Jul")
	wantKind(t, err, workflow.KindForbidden)
}

func TestSubmitRequiresAllMandatoryDocuments(t *testing.T) {
	mandatory := workflow.ResolveMandatory("Jul").Mandatory
	if len(mandatory) != 9 {
		t.Fatalf("July mandatory set = %d types", len(mandatory))
	}

	for i, omitted := range mandatory {
		t.Run(string(omitted), func(t *testing.T) {
			f := newFixture(t)
			present := append(append([]workflow.DocumentType{}, mandatory[:i]...), mandatory[i+1:]...)
			sub := f.draft(t, "Jul", present...)

			_, err := f.svc.SubmitForReview(context.Background(), f.vendor, sub.SubmissionID)
			var werr *workflow.Error
			if !errors.As(err, &werr) || werr.Kind != workflow.KindValidation {
				t.Fatalf("error = %v, want validation", err)
			}
			if len(werr.Missing) != 1 || werr.Missing[0] != omitted {
				t.Fatalf("missing = %v, want [%s]", werr.Missing, omitted)
			}
			if !strings.Contains(werr.Message, string(omitted)) {
				t.Fatalf("message %q does not name %s", werr.Message, omitted)
			}

			stored, _ := f.mem.GetBySubmissionID(context.Background(), sub.SubmissionID)
			if stored.SubmissionStatus != workflow.SubDraft {
				t.Fatalf("status = %s after failed submit", stored.SubmissionStatus)
			}
		})
	}

	f := newFixture(t)
	sub := f.submitted(t)
	if sub.SubmissionStatus != workflow.SubSubmitted || sub.SubmissionDate == nil {
		t.Fatalf("submitted = %s date=%v", sub.SubmissionStatus, sub.SubmissionDate)
	}
	f.svc.Wait()
	if f.notifier.received != 1 {
		t.Fatalf("consultant notifications = %d", f.notifier.received)
	}
	if got := f.pusher.typesFor(f.consultant.ID.Hex()); len(got) != 1 || got[0] != realtime.EventSubmissionSubmitted {
		t.Fatalf("consultant events = %v", got)
	}
}

func TestDecemberNeedsLabourWelfareFund(t *testing.T) {
	f := newFixture(t)
	sub := f.draft(t, "Dec", workflow.ResolveMandatory("Jul").Mandatory...)

	_, err := f.svc.SubmitForReview(context.Background(), f.vendor, sub.SubmissionID)
	var werr *workflow.Error
	if !errors.As(err, &werr) || len(werr.Missing) != 1 || werr.Missing[0] != workflow.DocLabourWelfareFund {
		t.Fatalf("error = %v", err)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.draft(t, "Jul")

	exe := file(workflow.DocSalarySlips)
	exe.FileName = "payload.exe"
	_, _, err := f.svc.UploadDocument(ctx, f.vendor, sub.SubmissionID, exe)
	wantKind(t, err, workflow.KindValidation)

	big := file(workflow.DocSalarySlips)
	big.Size = 2 << 10
	_, _, err = f.svc.UploadDocument(ctx, f.vendor, sub.SubmissionID, big)
	wantKind(t, err, workflow.KindValidation)

	_, _, err = f.svc.UploadDocument(ctx, f.vendor, sub.SubmissionID, file("Lunch Menu"))
	wantKind(t, err, workflow.KindValidation)

	_, _, err = f.svc.UploadDocument(ctx, f.consultant, sub.SubmissionID, file(workflow.DocSalarySlips))
	wantKind(t, err, workflow.KindForbidden)

	if f.files.count() != 0 {
		t.Fatalf("rejected uploads left %d files behind", f.files.count())
	}
}

func TestUploadReplacesSameType(t *testing.T) {
	f := newFixture(t)
	sub := f.draft(t, "Jul", workflow.DocSalarySlips)
	firstID := sub.Documents[0].ID

	sub, doc, err := f.svc.UploadDocument(context.Background(), f.vendor, sub.SubmissionID, file(workflow.DocSalarySlips))
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if len(sub.Documents) != 1 || doc.ID != firstID {
		t.Fatalf("documents = %d, id changed %v", len(sub.Documents), doc.ID != firstID)
	}
	if !doc.IsMandatory || doc.Status != workflow.DocUploaded {
		t.Fatalf("document = %+v", doc)
	}
	if f.files.count() != 1 {
		t.Fatalf("stored files = %d, old upload not removed", f.files.count())
	}
}

func TestOneTimeDocumentCannotRepeat(t *testing.T) {
	f := newFixture(t)
	f.draft(t, "Jan", workflow.DocPANCard)
	feb := f.draft(t, "Feb")

	_, _, err := f.svc.UploadDocument(context.Background(), f.vendor, feb.SubmissionID, file(workflow.DocPANCard))
	wantKind(t, err, workflow.KindValidation)
}

func TestUploadAfterSubmitConflicts(t *testing.T) {
	f := newFixture(t)
	sub := f.submitted(t)

	_, _, err := f.svc.UploadDocument(context.Background(), f.vendor, sub.SubmissionID, file(workflow.DocPANCard))
	wantKind(t, err, workflow.KindConflict)
}

func TestStartReview(t *testing.T) {
	f := newFixture(t)
	sub := f.submitted(t)

	sub, err := f.svc.StartReview(context.Background(), f.consultant, sub.SubmissionID)
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if sub.SubmissionStatus != workflow.SubUnderReview {
		t.Fatalf("status = %s", sub.SubmissionStatus)
	}
	for _, d := range sub.Documents {
		if d.Status != workflow.DocUnderReview {
			t.Fatalf("%s status = %s", d.DocumentType, d.Status)
		}
	}

	_, err = f.svc.StartReview(context.Background(), f.consultant, sub.SubmissionID)
	wantKind(t, err, workflow.KindConflict)
}

func TestReviewRequiresRemarks(t *testing.T) {
	f := newFixture(t)
	sub := f.submitted(t)
	docID := sub.Documents[0].ID

	for _, decision := range []workflow.DocumentStatus{workflow.DocApproved, workflow.DocRejected} {
		_, _, err := f.svc.ReviewDocument(context.Background(), f.consultant, sub.SubmissionID, docID, decision, "   ")
		var werr *workflow.Error
		if !errors.As(err, &werr) || werr.Message != workflow.MsgRemarksRequired {
			t.Fatalf("%s without remarks: %v", decision, err)
		}
	}

	stored, _ := f.mem.GetBySubmissionID(context.Background(), sub.SubmissionID)
	if stored.Documents[0].Status != workflow.DocUploaded || stored.Version != sub.Version {
		t.Fatalf("document changed: status=%s version=%d", stored.Documents[0].Status, stored.Version)
	}
}

func TestReviewRecomputesSubmissionStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted(t)

	sub, doc, err := f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, sub.Documents[0].ID, workflow.DocApproved, "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if doc.ReviewDate == nil || doc.ReviewedBy == nil || *doc.ReviewedBy != f.consultant.ID {
		t.Fatalf("review metadata missing: %+v", doc)
	}
	if sub.SubmissionStatus != workflow.SubPartiallyApproved {
		t.Fatalf("after approve: %s", sub.SubmissionStatus)
	}

	sub, _, err = f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, sub.Documents[1].ID, workflow.DocRejected, "blurry scan")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if sub.SubmissionStatus != workflow.SubRequiresResubmission {
		t.Fatalf("after reject: %s", sub.SubmissionStatus)
	}
	if sub.OverallStatus() != workflow.OverallStatus("pending") {
		t.Fatalf("overall = %s", sub.OverallStatus())
	}

	f.svc.Wait()
	if len(f.notifier.rejected) != 1 || f.notifier.rejected[0].ConsultantRemarks != "blurry scan" {
		t.Fatalf("rejection notices = %+v", f.notifier.rejected)
	}
	if got := f.pusher.typesFor(f.vendor.ID.Hex()); len(got) != 2 {
		t.Fatalf("vendor events = %v", got)
	}
}

func TestRejectionNotificationFailureKeepsDecision(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	sub := f.submitted(t)

	_, doc, err := f.svc.ReviewDocument(context.Background(), f.consultant, sub.SubmissionID, sub.Documents[0].ID, workflow.DocRejected, "wrong month")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	f.svc.Wait()

	stored, _ := f.mem.GetBySubmissionID(context.Background(), sub.SubmissionID)
	if stored.Documents[0].Status != workflow.DocRejected || doc.Status != workflow.DocRejected {
		t.Fatalf("status = %s", stored.Documents[0].Status)
	}
}

func TestReviewAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted(t)
	docID := sub.Documents[0].ID

	_, _, err := f.svc.ReviewDocument(ctx, f.stranger, sub.SubmissionID, docID, workflow.DocApproved, "ok")
	wantKind(t, err, workflow.KindForbidden)

	_, _, err = f.svc.ReviewDocument(ctx, f.vendor, sub.SubmissionID, docID, workflow.DocApproved, "ok")
	wantKind(t, err, workflow.KindForbidden)

	_, _, err = f.svc.ReviewDocument(ctx, f.admin, sub.SubmissionID, docID, workflow.DocApproved, "ok")
	if err != nil {
		t.Fatalf("admin review: %v", err)
	}

	_, _, err = f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, primitive.NewObjectID(), workflow.DocApproved, "ok")
	wantKind(t, err, workflow.KindNotFound)

	_, _, err = f.svc.ReviewDocument(ctx, f.consultant, "SUB-missing", docID, workflow.DocApproved, "ok")
	wantKind(t, err, workflow.KindNotFound)

	_, _, err = f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, docID, workflow.DocUploaded, "ok")
	wantKind(t, err, workflow.KindValidation)
}

func TestFinalizeRequiresEveryDocumentReviewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := &models.DocumentSubmission{
		SubmissionID:     "SUB-2024-JUL-PENDING",
		Vendor:           f.vendor.ID,
		UploadPeriod:     models.UploadPeriod{Year: 2024, Month: "Jul"},
		SubmissionStatus: workflow.SubUnderReview,
		Documents: []models.Document{
			{ID: primitive.NewObjectID(), DocumentType: workflow.DocSalarySlips, Status: workflow.DocApproved},
			{ID: primitive.NewObjectID(), DocumentType: workflow.DocPFECR, Status: workflow.DocPending},
		},
	}
	if err := f.mem.Create(ctx, sub); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.svc.FinalizeSubmission(ctx, f.consultant, sub.SubmissionID, true, "looks fine")
	var werr *workflow.Error
	if !errors.As(err, &werr) || werr.Message != workflow.MsgDocumentsUnreviewed {
		t.Fatalf("error = %v", err)
	}

	stored, _ := f.mem.GetBySubmissionID(ctx, sub.SubmissionID)
	if stored.SubmissionStatus != workflow.SubUnderReview || stored.ConsultantApproval.ApprovalDate != nil {
		t.Fatalf("submission mutated: %+v", stored)
	}
}

func TestFinalizeApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.reviewAll(t, f.submitted(t), workflow.DocApproved)

	_, err := f.svc.FinalizeSubmission(ctx, f.consultant, sub.SubmissionID, true, "")
	var werr *workflow.Error
	if !errors.As(err, &werr) || werr.Message != workflow.MsgFinalRemarksRequired {
		t.Fatalf("no remarks: %v", err)
	}

	sub, err = f.svc.FinalizeSubmission(ctx, f.consultant, sub.SubmissionID, true, "All good")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sub.SubmissionStatus != workflow.SubFullyApproved {
		t.Fatalf("status = %s", sub.SubmissionStatus)
	}
	ca := sub.ConsultantApproval
	if !ca.IsApproved || ca.Remarks != "All good" || ca.ApprovalDate == nil || ca.ApprovedBy == nil {
		t.Fatalf("approval = %+v", ca)
	}
	if last := sub.StatusHistory[len(sub.StatusHistory)-1]; last.To != workflow.SubFullyApproved || last.Remarks != "All good" {
		t.Fatalf("history tail = %+v", last)
	}

	_, err = f.svc.FinalizeSubmission(ctx, f.consultant, sub.SubmissionID, false, "changed my mind")
	wantKind(t, err, workflow.KindConflict)

	_, _, err = f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, sub.Documents[0].ID, workflow.DocRejected, "late")
	wantKind(t, err, workflow.KindConflict)

	f.svc.Wait()
	if f.notifier.finalized != 1 {
		t.Fatalf("finalized notices = %d", f.notifier.finalized)
	}
}

func TestConcurrentFinalizeHasOneWinner(t *testing.T) {
	f := newFixture(t)
	sub := f.reviewAll(t, f.submitted(t), workflow.DocApproved)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.FinalizeSubmission(context.Background(), f.consultant, sub.SubmissionID, i%2 == 0, "decision")
		}(i)
	}
	wg.Wait()
	f.svc.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case workflow.IsKind(err, workflow.KindConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want 1", wins)
	}
	if f.notifier.finalized != 1 {
		t.Fatalf("finalized notices = %d, want 1", f.notifier.finalized)
	}
}

func TestConcurrentReviewsOfDifferentDocumentsAllLand(t *testing.T) {
	f := newFixture(t)
	sub := f.submitted(t)

	var wg sync.WaitGroup
	errs := make([]error, len(sub.Documents))
	for i, d := range sub.Documents {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, _, errs[i] = f.svc.ReviewDocument(context.Background(), f.consultant, sub.SubmissionID, id, workflow.DocApproved, "ok")
		}(i, d.ID)
	}
	wg.Wait()

	// Losers retry a bounded number of times, so some may report a conflict;
	// every success must be visible in the stored document.
	stored, _ := f.mem.GetBySubmissionID(context.Background(), sub.SubmissionID)
	for i, err := range errs {
		approved := stored.Documents[i].Status == workflow.DocApproved
		if err == nil && !approved {
			t.Fatalf("review of %s reported success but was lost", stored.Documents[i].DocumentType)
		}
		if err != nil && !workflow.IsKind(err, workflow.KindConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestResubmitUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted(t)
	rejected := sub.Documents[0]

	if _, _, err := f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, rejected.ID, workflow.DocRejected, "unsigned"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	in := file(rejected.DocumentType)
	in.FileName = "signed.pdf"
	res, err := f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, rejected.ID.Hex(), in)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.Created || res.Document.ID != rejected.ID {
		t.Fatalf("expected in-place update, got %+v", res)
	}
	if res.Document.Status != workflow.DocResubmitted || res.Document.ResubmissionCount != 1 || res.Document.FileName != "signed.pdf" {
		t.Fatalf("document = %+v", res.Document)
	}
	if len(res.Submission.Documents) != len(sub.Documents) {
		t.Fatalf("document count changed: %d", len(res.Submission.Documents))
	}
	if res.Submission.SubmissionStatus != workflow.SubUnderReview {
		t.Fatalf("submission status = %s", res.Submission.SubmissionStatus)
	}
	if res.Submission.OverallStatus() != workflow.OverallStatus("in_progress") {
		t.Fatalf("overall = %s", res.Submission.OverallStatus())
	}

	_, err = f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, rejected.ID.Hex(), file(rejected.DocumentType))
	wantKind(t, err, workflow.KindConflict)
}

func TestResubmitUnknownDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted(t)

	// Unknown id, type already present: that entry is updated.
	salary := sub.Documents[sub.FindDocumentByType(workflow.DocSalarySlips)]
	if _, _, err := f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, salary.ID, workflow.DocRejected, "redo"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	res, err := f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, primitive.NewObjectID().Hex(), file(workflow.DocSalarySlips))
	if err != nil {
		t.Fatalf("resubmit by type: %v", err)
	}
	if res.Created || res.Document.ID != salary.ID {
		t.Fatalf("expected the salary slip entry, got %+v", res.Document)
	}

	// Unknown id, type absent: a new entry is created.
	res, err = f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, "not-an-id", file(workflow.DocGSTRegistration))
	if err != nil {
		t.Fatalf("resubmit new: %v", err)
	}
	if !res.Created || res.Document.Status != workflow.DocResubmitted {
		t.Fatalf("expected a created entry, got %+v", res)
	}
	if len(res.Submission.Documents) != len(sub.Documents)+1 {
		t.Fatalf("documents = %d", len(res.Submission.Documents))
	}

	// Unknown id without a usable type fails.
	noType := file("")
	_, err = f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, primitive.NewObjectID().Hex(), noType)
	wantKind(t, err, workflow.KindNotFound)
}

func TestResubmitCannotRepeatOneTimeDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jul := f.draft(t, "Jul", append(workflow.ResolveMandatory("Jul").Mandatory, workflow.DocGSTRegistration)...)
	if _, err := f.svc.SubmitForReview(ctx, f.vendor, jul.SubmissionID); err != nil {
		t.Fatalf("submit jul: %v", err)
	}
	aug := f.draft(t, "Aug", workflow.ResolveMandatory("Aug").Mandatory...)
	aug, err := f.svc.SubmitForReview(ctx, f.vendor, aug.SubmissionID)
	if err != nil {
		t.Fatalf("submit aug: %v", err)
	}
	files := f.files.count()

	_, err = f.svc.ResubmitDocument(ctx, f.vendor, aug.SubmissionID, primitive.NilObjectID.Hex(), file(workflow.DocGSTRegistration))
	wantKind(t, err, workflow.KindValidation)

	got, err := f.svc.GetSubmission(ctx, f.vendor, aug.SubmissionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Documents) != len(aug.Documents) || got.FindDocumentByType(workflow.DocGSTRegistration) >= 0 {
		t.Fatalf("one-time document added to a second period: %d documents", len(got.Documents))
	}
	if f.files.count() != files {
		t.Fatalf("stored files = %d, want %d", f.files.count(), files)
	}

	// A one-time type the vendor never uploaded can still be added.
	res, err := f.svc.ResubmitDocument(ctx, f.vendor, aug.SubmissionID, primitive.NilObjectID.Hex(), file(workflow.DocPANCard))
	if err != nil || !res.Created {
		t.Fatalf("first PAN card: %+v %v", res, err)
	}
}

func TestResubmitReopensFinalizedSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submitted(t)
	sub = f.reviewAll(t, sub, workflow.DocApproved)
	target := sub.Documents[2]
	if _, _, err := f.svc.ReviewDocument(ctx, f.consultant, sub.SubmissionID, target.ID, workflow.DocRejected, "expired"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	sub, err := f.svc.FinalizeSubmission(ctx, f.consultant, sub.SubmissionID, false, "fix the challan")
	if err != nil || sub.SubmissionStatus != workflow.SubRejected {
		t.Fatalf("finalize reject: %v %s", err, sub.SubmissionStatus)
	}

	res, err := f.svc.ResubmitDocument(ctx, f.vendor, sub.SubmissionID, target.ID.Hex(), file(target.DocumentType))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.Submission.SubmissionStatus != workflow.SubUnderReview {
		t.Fatalf("status = %s", res.Submission.SubmissionStatus)
	}
	if res.Submission.ConsultantApproval.ApprovalDate != nil || res.Submission.ConsultantApproval.Remarks != "" {
		t.Fatalf("approval not cleared: %+v", res.Submission.ConsultantApproval)
	}
	if got := f.pusher.typesFor(f.consultant.ID.Hex()); got[len(got)-1] != realtime.EventDocumentResubmitted {
		t.Fatalf("consultant events = %v", got)
	}
}

func TestListForConsultantScopesToAssignedVendors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submitted(t)
	f.draft(t, "Aug")

	mine, err := f.svc.ListForConsultant(ctx, f.consultant, ReviewFilter{Year: 2024})
	if err != nil || len(mine) != 2 {
		t.Fatalf("consultant list: %d %v", len(mine), err)
	}

	submitted, err := f.svc.ListForConsultant(ctx, f.consultant, ReviewFilter{Status: "submitted"})
	if err != nil || len(submitted) != 1 {
		t.Fatalf("status filter: %d %v", len(submitted), err)
	}

	none, err := f.svc.ListForConsultant(ctx, f.stranger, ReviewFilter{})
	if err != nil || len(none) != 0 {
		t.Fatalf("unassigned consultant sees %d", len(none))
	}

	vendorID := f.vendor.ID
	_, err = f.svc.ListForConsultant(ctx, f.stranger, ReviewFilter{VendorID: &vendorID})
	wantKind(t, err, workflow.KindForbidden)

	all, err := f.svc.ListForConsultant(ctx, f.admin, ReviewFilter{Month: "aug"})
	if err != nil || len(all) != 1 {
		t.Fatalf("admin month filter: %d %v", len(all), err)
	}

	_, err = f.svc.ListForConsultant(ctx, f.consultant, ReviewFilter{Status: "archived"})
	wantKind(t, err, workflow.KindValidation)

	own, err := f.svc.ListForVendor(ctx, f.vendor, 2024)
	if err != nil || len(own) != 2 {
		t.Fatalf("vendor list: %d %v", len(own), err)
	}
}

func TestGetSubmissionAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.draft(t, "Jul")

	if _, err := f.svc.GetSubmission(ctx, f.vendor, sub.SubmissionID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	otherVendor := Actor{ID: primitive.NewObjectID(), Role: workflow.RoleVendor}
	_, err := f.svc.GetSubmission(ctx, otherVendor, sub.SubmissionID)
	wantKind(t, err, workflow.KindForbidden)

	entries, _ := f.mem.Recent(ctx, 10)
	if len(entries) == 0 || entries[len(entries)-1].Action != activity.ActionSubmissionCreated {
		t.Fatalf("activity = %+v", entries)
	}
}
