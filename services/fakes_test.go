// services/fakes_test.go
//
// In-memory stores backing the service tests. They mirror the repository
// contracts exactly: ErrNotFound for missing documents, ErrStaleDocument when
// the pinned (status, version) no longer matches, ErrDuplicateKey on unique
// constraint violations.
package services

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/repositories"
)

type fakePaymentStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.FundPaymentRequest
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{docs: map[primitive.ObjectID]*models.FundPaymentRequest{}}
}

func (f *fakePaymentStore) Insert(ctx context.Context, req *models.FundPaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ReferenceCode == req.ReferenceCode {
			return repositories.ErrDuplicateKey
		}
		if d.RequesterID == req.RequesterID && d.Period == req.Period && d.DeletedAt == nil &&
			(d.Status == models.StatusPending || d.Status == models.StatusAwaitingVerification) {
			return repositories.ErrDuplicateKey
		}
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	cp := *req
	f.docs[req.ID] = &cp
	return nil
}

func (f *fakePaymentStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.FundPaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakePaymentStore) FindForPeriod(ctx context.Context, requesterID primitive.ObjectID, period string) (*models.FundPaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.RequesterID == requesterID && d.Period == period && d.DeletedAt == nil {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePaymentStore) FindAwaitingVerification(ctx context.Context) ([]models.FundPaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FundPaymentRequest
	for _, d := range f.docs {
		if d.Status == models.StatusAwaitingVerification && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePaymentStore) ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.FundPaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FundPaymentRequest
	for _, d := range f.docs {
		if d.RequesterID != requesterID || d.DeletedAt != nil {
			continue
		}
		if d.Archived && !includeArchived {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakePaymentStore) ReferenceExists(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ReferenceCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentStore) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.PaymentMutation) (*models.FundPaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	if d.Status != from || d.Version != version {
		return nil, repositories.ErrStaleDocument
	}
	d.Status = event.To
	d.Version++
	d.History = append(d.History, event)
	d.UpdatedAt = event.At
	if mut.MemberConfirmedAt != nil {
		d.MemberConfirmedAt = mut.MemberConfirmedAt
	}
	if mut.VerifiedAt != nil {
		d.VerifiedAt = mut.VerifiedAt
	}
	if mut.Resubmission != nil {
		d.Resubmission = mut.Resubmission
	}
	if mut.ClearResubmission {
		d.Resubmission = nil
	}
	if mut.IncResubmitCount {
		d.ResubmitCount++
	}
	cp := *d
	return &cp, nil
}

func (f *fakePaymentStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	now := d.UpdatedAt
	d.DeletedAt = &now
	return nil
}

func (f *fakePaymentStore) Archive(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	d.Archived = true
	return nil
}

type fakeUserStore struct {
	users     map[primitive.ObjectID]*models.User
	passwords map[primitive.ObjectID]string
	updateErr error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{
		users:     map[primitive.ObjectID]*models.User{},
		passwords: map[primitive.ObjectID]string{},
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	f.passwords[id] = passwordHash
	return nil
}

type fakeSettingsStore struct {
	settings *models.TreasurySettings
}

func (f *fakeSettingsStore) Get(ctx context.Context) (*models.TreasurySettings, error) {
	return f.settings, nil
}

type fakeReimbursementStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.ReimbursementRequest
}

func newFakeReimbursementStore() *fakeReimbursementStore {
	return &fakeReimbursementStore{docs: map[primitive.ObjectID]*models.ReimbursementRequest{}}
}

func (f *fakeReimbursementStore) Insert(ctx context.Context, req *models.ReimbursementRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	cp := *req
	f.docs[req.ID] = &cp
	return nil
}

func (f *fakeReimbursementStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeReimbursementStore) ListByRequester(ctx context.Context, requesterID primitive.ObjectID, includeArchived bool) ([]models.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReimbursementRequest
	for _, d := range f.docs {
		if d.RequesterID != requesterID || d.DeletedAt != nil {
			continue
		}
		if d.Archived && !includeArchived {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeReimbursementStore) ListByStatus(ctx context.Context, status models.Status) ([]models.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReimbursementRequest
	for _, d := range f.docs {
		if d.Status == status && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReimbursementStore) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.ReimbursementMutation) (*models.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	if d.Status != from || d.Version != version {
		return nil, repositories.ErrStaleDocument
	}
	d.Status = event.To
	d.Version++
	d.History = append(d.History, event)
	d.UpdatedAt = event.At
	if mut.TreasurerResponse != nil {
		d.TreasurerResponse = mut.TreasurerResponse
	}
	if mut.ReceivedConfirmedAt != nil {
		d.ReceivedConfirmedAt = mut.ReceivedConfirmedAt
	}
	cp := *d
	return &cp, nil
}

func (f *fakeReimbursementStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	now := d.UpdatedAt
	d.DeletedAt = &now
	return nil
}

func (f *fakeReimbursementStore) Archive(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	d.Archived = true
	return nil
}

type fakeCredentialStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]*models.CredentialResetRequest
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{docs: map[primitive.ObjectID]*models.CredentialResetRequest{}}
}

func (f *fakeCredentialStore) Insert(ctx context.Context, req *models.CredentialResetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.RequesterID == req.RequesterID && d.Status == models.StatusPending && d.DeletedAt == nil {
			return repositories.ErrDuplicateKey
		}
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	cp := *req
	f.docs[req.ID] = &cp
	return nil
}

func (f *fakeCredentialStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.CredentialResetRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeCredentialStore) FindPendingByRequester(ctx context.Context, requesterID primitive.ObjectID) (*models.CredentialResetRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.RequesterID == requesterID && d.Status == models.StatusPending && d.DeletedAt == nil {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCredentialStore) ListPending(ctx context.Context) ([]models.CredentialResetRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CredentialResetRequest
	for _, d := range f.docs {
		if d.Status == models.StatusPending && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeCredentialStore) ApplyTransition(ctx context.Context, id primitive.ObjectID, from models.Status, version int64, event models.StatusEvent, mut repositories.CredentialMutation) (*models.CredentialResetRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return nil, repositories.ErrNotFound
	}
	if d.Status != from || d.Version != version {
		return nil, repositories.ErrStaleDocument
	}
	d.Status = event.To
	d.Version++
	d.History = append(d.History, event)
	d.UpdatedAt = event.At
	if mut.RejectionReason != "" {
		d.RejectionReason = mut.RejectionReason
	}
	if mut.ClearCandidate {
		d.CandidateHash = ""
	}
	cp := *d
	return &cp, nil
}

func (f *fakeCredentialStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.DeletedAt != nil {
		return repositories.ErrNotFound
	}
	now := d.UpdatedAt
	d.DeletedAt = &now
	return nil
}

type notice struct {
	userID primitive.ObjectID
	title  string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (f *fakeNotifier) NotifyDecision(userID primitive.ObjectID, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{userID: userID, title: title})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}
