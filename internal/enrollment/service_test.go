package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/cart"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

type activeKey struct {
	candidate uuid.UUID
	item      uuid.UUID
	itemType  catalog.ItemType
}

type mockLedger struct {
	records map[uuid.UUID]*Record // by request id
}

func newMockLedger() *mockLedger {
	return &mockLedger{records: make(map[uuid.UUID]*Record)}
}

func (m *mockLedger) Insert(_ context.Context, _ pgx.Tx, rec *Record) error {
	for _, existing := range m.records {
		if existing.CandidateID == rec.CandidateID &&
			existing.ItemID == rec.ItemID &&
			existing.ItemType == rec.ItemType &&
			existing.Status != StatusRejected {
			return ErrDuplicateActive
		}
	}
	cp := *rec
	m.records[rec.RequestID] = &cp
	return nil
}

func (m *mockLedger) SetStatusByRequest(_ context.Context, _ pgx.Tx, requestID uuid.UUID, status Status) error {
	rec, ok := m.records[requestID]
	if !ok {
		return httpx.ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockLedger) Latest(_ context.Context, candidateID, itemID uuid.UUID, itemType catalog.ItemType) (*Record, error) {
	var latest *Record
	for _, rec := range m.records {
		if rec.CandidateID != candidateID || rec.ItemID != itemID || rec.ItemType != itemType {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, httpx.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockLedger) ListForCandidate(_ context.Context, candidateID uuid.UUID) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.CandidateID == candidateID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type mockCart struct {
	items map[activeKey]cart.Item
}

func newMockCart() *mockCart {
	return &mockCart{items: make(map[activeKey]cart.Item)}
}

func (m *mockCart) Add(_ context.Context, item cart.Item) error {
	key := activeKey{item.CandidateID, item.ItemID, item.ItemType}
	if _, ok := m.items[key]; !ok {
		m.items[key] = item
	}
	return nil
}

func (m *mockCart) Remove(_ context.Context, _ pgx.Tx, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error {
	delete(m.items, activeKey{candidateID, itemID, itemType})
	return nil
}

func (m *mockCart) Clear(_ context.Context, candidateID uuid.UUID) error {
	for key := range m.items {
		if key.candidate == candidateID {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *mockCart) List(_ context.Context, candidateID uuid.UUID) ([]cart.Item, error) {
	var out []cart.Item
	for _, item := range m.items {
		if item.CandidateID == candidateID {
			out = append(out, item)
		}
	}
	return out, nil
}

type mockCatalog struct {
	active map[uuid.UUID]catalog.ItemType
}

func (m *mockCatalog) Get(context.Context, uuid.UUID) (*catalog.Item, error) {
	return nil, httpx.ErrNotFound
}

func (m *mockCatalog) List(context.Context, *catalog.ItemType) ([]catalog.Item, error) {
	return nil, nil
}

func (m *mockCatalog) ActiveExists(_ context.Context, id uuid.UUID, t catalog.ItemType) (bool, error) {
	got, ok := m.active[id]
	return ok && got == t, nil
}

type stubSubmitter struct {
	errs map[uuid.UUID]error // keyed by item id
	seen []approval.EnrollmentPayload
}

func (s *stubSubmitter) Submit(_ context.Context, kind approval.Kind, subjectID uuid.UUID, payload json.RawMessage) (*approval.Request, error) {
	var p approval.EnrollmentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	s.seen = append(s.seen, p)
	if err, ok := s.errs[p.ItemID]; ok {
		return nil, err
	}
	return &approval.Request{
		ID:        uuid.New(),
		Kind:      kind,
		SubjectID: subjectID,
		Payload:   payload,
		Status:    approval.StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := NewService(newMockLedger(), newMockCart(), &stubSubmitter{}, slog.Default())
	_, err := svc.Checkout(context.Background(), uuid.New(), nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutBestEffortPerItem(t *testing.T) {
	candidate := uuid.New()
	mc := newMockCart()
	goodCourse := uuid.New()
	dupCourse := uuid.New()
	internship := uuid.New()
	for id, it := range map[uuid.UUID]catalog.ItemType{
		goodCourse: catalog.ItemTypeCourse,
		dupCourse:  catalog.ItemTypeCourse,
		internship: catalog.ItemTypeInternship,
	} {
		require.NoError(t, mc.Add(context.Background(), cart.Item{
			CandidateID: candidate, ItemID: id, ItemType: it, AddedAt: time.Now(),
		}))
	}

	submitter := &stubSubmitter{errs: map[uuid.UUID]error{dupCourse: ErrDuplicateActive}}
	svc := NewService(newMockLedger(), mc, submitter, slog.Default())

	results, err := svc.Checkout(context.Background(), candidate, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byItem := make(map[uuid.UUID]CheckoutResult)
	for _, res := range results {
		byItem[res.ItemID] = res
	}
	assert.NotNil(t, byItem[goodCourse].RequestID)
	assert.Empty(t, byItem[goodCourse].Error)
	assert.NotNil(t, byItem[internship].RequestID)
	assert.Nil(t, byItem[dupCourse].RequestID)
	assert.Contains(t, byItem[dupCourse].Error, "already exists")
}

func TestCheckoutKeepsItemsStaged(t *testing.T) {
	candidate := uuid.New()
	mc := newMockCart()
	item := uuid.New()
	require.NoError(t, mc.Add(context.Background(), cart.Item{
		CandidateID: candidate, ItemID: item, ItemType: catalog.ItemTypeCourse, AddedAt: time.Now(),
	}))

	svc := NewService(newMockLedger(), mc, &stubSubmitter{}, slog.Default())
	_, err := svc.Checkout(context.Background(), candidate, nil)
	require.NoError(t, err)

	// The staged item is only cleared when the request is accepted.
	staged, err := mc.List(context.Background(), candidate)
	require.NoError(t, err)
	assert.Len(t, staged, 1)
}

func TestCheckoutAttachesEvidenceRef(t *testing.T) {
	candidate := uuid.New()
	mc := newMockCart()
	first, second := uuid.New(), uuid.New()
	for id, it := range map[uuid.UUID]catalog.ItemType{
		first:  catalog.ItemTypeCourse,
		second: catalog.ItemTypeInternship,
	} {
		require.NoError(t, mc.Add(context.Background(), cart.Item{
			CandidateID: candidate, ItemID: id, ItemType: it, AddedAt: time.Now(),
		}))
	}

	submitter := &stubSubmitter{}
	svc := NewService(newMockLedger(), mc, submitter, slog.Default())

	ref := "evidence/" + uuid.NewString()
	results, err := svc.Checkout(context.Background(), candidate, &ref)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, submitter.seen, 2)
	for _, payload := range submitter.seen {
		require.NotNil(t, payload.PaymentEvidenceRef)
		assert.Equal(t, ref, *payload.PaymentEvidenceRef)
	}
}

// requestStore is an in-memory approval.Repository. The pending uniqueness
// guard mirrors uq_approval_requests_pending_account: it never applies to
// enrollment requests, which are keyed per item by the ledger.
type requestStore struct {
	requests map[uuid.UUID]*approval.Request
}

func (s *requestStore) Insert(_ context.Context, req *approval.Request) error {
	for _, existing := range s.requests {
		if req.Kind != approval.KindCourseEnrollment &&
			existing.Kind == req.Kind &&
			existing.SubjectID == req.SubjectID &&
			existing.Status == approval.StatusPending {
			return httpx.ErrDuplicate
		}
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *requestStore) Get(_ context.Context, id uuid.UUID) (*approval.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *requestStore) List(context.Context, approval.ListFilter) ([]approval.Request, error) {
	return nil, nil
}

func (s *requestStore) Decide(_ context.Context, id uuid.UUID, status approval.Status, reviewerID uuid.UUID, message *string, decidedAt time.Time) (bool, error) {
	req, ok := s.requests[id]
	if !ok || req.Status != approval.StatusPending {
		return false, nil
	}
	req.Status = status
	req.ReviewerID = &reviewerID
	req.DecisionMessage = message
	req.DecidedAt = &decidedAt
	return true, nil
}

func (s *requestStore) WithTx(ctx context.Context, fn func(ctx context.Context, r approval.Repository, tx pgx.Tx) error) error {
	return fn(ctx, s, nil)
}

func TestCheckoutTwoItemsThroughApprovals(t *testing.T) {
	candidate := uuid.New()
	courseID, internshipID := uuid.New(), uuid.New()

	ledger := newMockLedger()
	mc := newMockCart()
	cat := &mockCatalog{active: map[uuid.UUID]catalog.ItemType{
		courseID:     catalog.ItemTypeCourse,
		internshipID: catalog.ItemTypeInternship,
	}}
	for id, it := range cat.active {
		require.NoError(t, mc.Add(context.Background(), cart.Item{
			CandidateID: candidate, ItemID: id, ItemType: it, AddedAt: time.Now(),
		}))
	}

	registry := approval.NewRegistry()
	registry.Register(approval.KindCourseEnrollment, Effect{Repo: ledger, Cart: mc, Catalog: cat})
	approvals := approval.NewService(&requestStore{requests: make(map[uuid.UUID]*approval.Request)}, registry, nil, nil, nil, slog.Default())

	svc := NewService(ledger, mc, approvals, slog.Default())
	results, err := svc.Checkout(context.Background(), candidate, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Both items file their own pending request; neither blocks the other.
	for _, res := range results {
		assert.Empty(t, res.Error)
		require.NotNil(t, res.RequestID)
	}
	for id, it := range cat.active {
		rec, err := ledger.Latest(context.Background(), candidate, id, it)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status)
	}
}

func newEffectFixture(candidate, item uuid.UUID) (Effect, *mockLedger, *mockCart) {
	ledger := newMockLedger()
	mc := newMockCart()
	cat := &mockCatalog{active: map[uuid.UUID]catalog.ItemType{item: catalog.ItemTypeCourse}}
	return Effect{Repo: ledger, Cart: mc, Catalog: cat}, ledger, mc
}

func enrollmentRequest(t *testing.T, candidate, item uuid.UUID) *approval.Request {
	t.Helper()
	payload, err := json.Marshal(approval.EnrollmentPayload{ItemID: item, ItemType: "course"})
	require.NoError(t, err)
	return &approval.Request{
		ID:        uuid.New(),
		Kind:      approval.KindCourseEnrollment,
		SubjectID: candidate,
		Payload:   payload,
		Status:    approval.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestEffectSubmitWritesPendingRecord(t *testing.T) {
	candidate, item := uuid.New(), uuid.New()
	effect, ledger, _ := newEffectFixture(candidate, item)

	req := enrollmentRequest(t, candidate, item)
	require.NoError(t, effect.OnSubmit(context.Background(), nil, req))

	rec, err := ledger.Latest(context.Background(), candidate, item, catalog.ItemTypeCourse)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, req.ID, rec.RequestID)
}

func TestEffectSubmitRejectsDuplicateActive(t *testing.T) {
	candidate, item := uuid.New(), uuid.New()
	effect, _, _ := newEffectFixture(candidate, item)

	require.NoError(t, effect.OnSubmit(context.Background(), nil, enrollmentRequest(t, candidate, item)))
	err := effect.OnSubmit(context.Background(), nil, enrollmentRequest(t, candidate, item))
	require.ErrorIs(t, err, ErrDuplicateActive)
}

func TestEffectSubmitRejectsInactiveItem(t *testing.T) {
	candidate := uuid.New()
	effect, _, _ := newEffectFixture(candidate, uuid.New())

	err := effect.OnSubmit(context.Background(), nil, enrollmentRequest(t, candidate, uuid.New()))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestEffectAcceptFinalizesAndClearsCart(t *testing.T) {
	candidate, item := uuid.New(), uuid.New()
	effect, ledger, mc := newEffectFixture(candidate, item)
	require.NoError(t, mc.Add(context.Background(), cart.Item{
		CandidateID: candidate, ItemID: item, ItemType: catalog.ItemTypeCourse, AddedAt: time.Now(),
	}))

	req := enrollmentRequest(t, candidate, item)
	require.NoError(t, effect.OnSubmit(context.Background(), nil, req))
	require.NoError(t, effect.OnAccept(context.Background(), nil, req, approval.Decision{}))

	rec, err := ledger.Latest(context.Background(), candidate, item, catalog.ItemTypeCourse)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, rec.Status)

	staged, err := mc.List(context.Background(), candidate)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestEffectRejectAllowsRetry(t *testing.T) {
	candidate, item := uuid.New(), uuid.New()
	effect, ledger, _ := newEffectFixture(candidate, item)

	first := enrollmentRequest(t, candidate, item)
	require.NoError(t, effect.OnSubmit(context.Background(), nil, first))
	require.NoError(t, effect.OnReject(context.Background(), nil, first, approval.Decision{}))

	rec, err := ledger.Latest(context.Background(), candidate, item, catalog.ItemTypeCourse)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rec.Status)

	// A rejected record never blocks a new attempt.
	second := enrollmentRequest(t, candidate, item)
	require.NoError(t, effect.OnSubmit(context.Background(), nil, second))
}

func TestDuplicateActiveMapsToConflict(t *testing.T) {
	require.ErrorIs(t, ErrDuplicateActive, httpx.ErrConflict)
	require.False(t, errors.Is(ErrDuplicateActive, httpx.ErrValidation))
}
