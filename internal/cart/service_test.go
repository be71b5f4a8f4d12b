package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/platform/httpx"
)

type itemKey struct {
	candidate uuid.UUID
	item      uuid.UUID
	itemType  catalog.ItemType
}

type mockRepository struct {
	items map[itemKey]Item
}

func newMockRepository() *mockRepository {
	return &mockRepository{items: make(map[itemKey]Item)}
}

func (m *mockRepository) Add(_ context.Context, item Item) error {
	key := itemKey{item.CandidateID, item.ItemID, item.ItemType}
	if _, ok := m.items[key]; !ok {
		m.items[key] = item
	}
	return nil
}

func (m *mockRepository) Remove(_ context.Context, _ pgx.Tx, candidateID, itemID uuid.UUID, itemType catalog.ItemType) error {
	delete(m.items, itemKey{candidateID, itemID, itemType})
	return nil
}

func (m *mockRepository) Clear(_ context.Context, candidateID uuid.UUID) error {
	for key := range m.items {
		if key.candidate == candidateID {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *mockRepository) List(_ context.Context, candidateID uuid.UUID) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.CandidateID == candidateID {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubCatalog struct {
	active map[uuid.UUID]catalog.ItemType
}

func (s *stubCatalog) Get(context.Context, uuid.UUID) (*catalog.Item, error) {
	return nil, httpx.ErrNotFound
}

func (s *stubCatalog) List(context.Context, *catalog.ItemType) ([]catalog.Item, error) {
	return nil, nil
}

func (s *stubCatalog) ActiveExists(_ context.Context, id uuid.UUID, t catalog.ItemType) (bool, error) {
	got, ok := s.active[id]
	return ok && got == t, nil
}

func TestAddIsIdempotent(t *testing.T) {
	repo := newMockRepository()
	course := uuid.New()
	svc := NewService(repo, &stubCatalog{active: map[uuid.UUID]catalog.ItemType{course: catalog.ItemTypeCourse}})
	candidate := uuid.New()

	require.NoError(t, svc.Add(context.Background(), candidate, course, catalog.ItemTypeCourse))
	require.NoError(t, svc.Add(context.Background(), candidate, course, catalog.ItemTypeCourse))

	items, err := svc.List(context.Background(), candidate)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddRejectsUnknownItem(t *testing.T) {
	svc := NewService(newMockRepository(), &stubCatalog{})
	err := svc.Add(context.Background(), uuid.New(), uuid.New(), catalog.ItemTypeCourse)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAddRejectsBadItemType(t *testing.T) {
	svc := NewService(newMockRepository(), &stubCatalog{})
	err := svc.Add(context.Background(), uuid.New(), uuid.New(), catalog.ItemType("workshop"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRemoveToleratesAbsent(t *testing.T) {
	svc := NewService(newMockRepository(), &stubCatalog{})
	require.NoError(t, svc.Remove(context.Background(), uuid.New(), uuid.New(), catalog.ItemTypeInternship))
}

func TestClearScopedToCandidate(t *testing.T) {
	repo := newMockRepository()
	course := uuid.New()
	svc := NewService(repo, &stubCatalog{active: map[uuid.UUID]catalog.ItemType{course: catalog.ItemTypeCourse}})

	a, b := uuid.New(), uuid.New()
	require.NoError(t, svc.Add(context.Background(), a, course, catalog.ItemTypeCourse))
	require.NoError(t, svc.Add(context.Background(), b, course, catalog.ItemTypeCourse))

	require.NoError(t, svc.Clear(context.Background(), a))

	itemsA, err := svc.List(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, itemsA)

	itemsB, err := svc.List(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, itemsB, 1)
}
