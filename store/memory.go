package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"vendorcompliance/models"
	"vendorcompliance/workflow"
)

// MemoryStore keeps submissions, users and activity in memory. It backs tests
// and local runs without MongoDB.
type MemoryStore struct {
	submissions map[string]*models.DocumentSubmission
	users       map[primitive.ObjectID]*models.User
	activity    []models.ActivityLog

	subMu      sync.RWMutex
	userMu     sync.RWMutex
	activityMu sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]*models.DocumentSubmission),
		users:       make(map[primitive.ObjectID]*models.User),
	}
}

// Submission operations

func (m *MemoryStore) Create(ctx context.Context, sub *models.DocumentSubmission) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if _, exists := m.submissions[sub.SubmissionID]; exists {
		return ErrDuplicate
	}
	for _, s := range m.submissions {
		if s.Vendor == sub.Vendor && s.UploadPeriod == sub.UploadPeriod {
			return ErrDuplicate
		}
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	m.submissions[sub.SubmissionID] = sub.Clone()
	return nil
}

func (m *MemoryStore) GetBySubmissionID(ctx context.Context, submissionID string) (*models.DocumentSubmission, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	sub, exists := m.submissions[submissionID]
	if !exists {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (m *MemoryStore) FindByPeriod(ctx context.Context, vendor primitive.ObjectID, year int, month string) (*models.DocumentSubmission, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, s := range m.submissions {
		if s.Vendor == vendor && s.UploadPeriod.Year == year && s.UploadPeriod.Month == month {
			return s.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Update(ctx context.Context, sub *models.DocumentSubmission, expectedVersion int64) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	current, exists := m.submissions[sub.SubmissionID]
	if !exists {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	sub.Version = expectedVersion + 1
	m.submissions[sub.SubmissionID] = sub.Clone()
	return nil
}

func (m *MemoryStore) List(ctx context.Context, filter SubmissionFilter) ([]models.DocumentSubmission, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	results := []models.DocumentSubmission{}
	for _, s := range m.submissions {
		if filter.Vendors != nil && !containsID(filter.Vendors, s.Vendor) {
			continue
		}
		if filter.VendorID != nil && s.Vendor != *filter.VendorID {
			continue
		}
		if filter.Year != 0 && s.UploadPeriod.Year != filter.Year {
			continue
		}
		if filter.Month != "" && s.UploadPeriod.Month != filter.Month {
			continue
		}
		if filter.Status != "" && s.SubmissionStatus != filter.Status {
			continue
		}
		results = append(results, *s.Clone())
	}

	// Newest first, matching the Mongo sort on lastModifiedDate.
	sort.Slice(results, func(i, j int) bool {
		return results[i].LastModifiedDate.After(results[j].LastModifiedDate)
	})
	if filter.Limit > 0 && int64(len(results)) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (m *MemoryStore) VendorHasDocumentType(ctx context.Context, vendor primitive.ObjectID, docType workflow.DocumentType, excludeSubmissionID string) (bool, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for id, s := range m.submissions {
		if s.Vendor != vendor || id == excludeSubmissionID {
			continue
		}
		if s.FindDocumentByType(docType) >= 0 {
			return true, nil
		}
	}
	return false, nil
}

// User operations

func (m *MemoryStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	u, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	users := []models.User{}
	for _, u := range m.users {
		if role == "" || u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *MemoryStore) VendorsForConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	vendors := []models.User{}
	for _, u := range m.users {
		if u.Role == string(workflow.RoleVendor) && u.AssignedConsultant != nil && *u.AssignedConsultant == consultantID {
			vendors = append(vendors, *u)
		}
	}
	return vendors, nil
}

func (m *MemoryStore) AssignConsultant(ctx context.Context, vendorID, consultantID primitive.ObjectID) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	u, exists := m.users[vendorID]
	if !exists || u.Role != string(workflow.RoleVendor) {
		return ErrNotFound
	}
	id := consultantID
	u.AssignedConsultant = &id
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Activity operations

func (m *MemoryStore) Insert(ctx context.Context, entry *models.ActivityLog) error {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	m.activity = append(m.activity, *entry)
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int64) ([]models.ActivityLog, error) {
	m.activityMu.RLock()
	defer m.activityMu.RUnlock()

	out := []models.ActivityLog{}
	for i := len(m.activity) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		out = append(out, m.activity[i])
	}
	return out, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
