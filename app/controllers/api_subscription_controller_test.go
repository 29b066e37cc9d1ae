package controllers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subfoxapp/SubFox/app/models"
	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/querycache"
	"github.com/subfoxapp/SubFox/internal/pkg/usercontext"
)

// stubStore is an in-memory store behind the query cache for handler tests.
type stubStore struct {
	mu                sync.Mutex
	subs              map[string]models.Subscription
	nextID            int
	queryByOwnerCalls int
	deleteCalls       int
}

func newStubStore() *stubStore {
	return &stubStore{subs: make(map[string]models.Subscription)}
}

func (s *stubStore) seed(ownerID uint, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sub-%d", s.nextID)
	s.subs[id] = models.Subscription{
		UUID:         id,
		UserID:       ownerID,
		Name:         name,
		Price:        12.99,
		Currency:     "EUR",
		BillingCycle: "monthly",
		RenewalDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	return id
}

func (s *stubStore) Insert(ctx context.Context, sub *models.Subscription) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.UUID = fmt.Sprintf("sub-%d", s.nextID)
	s.subs[sub.UUID] = *sub
	return sub.UUID, nil
}

func (s *stubStore) QueryByOwner(ctx context.Context, ownerID uint) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryByOwnerCalls++
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.UserID == ownerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *stubStore) Replace(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.UUID]; !ok {
		return repository.ErrNotFound
	}
	s.subs[sub.UUID] = *sub
	return nil
}

func (s *stubStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleteCalls++
	delete(s.subs, id)
	return nil
}

// newSubscriptionTestApp wires the handlers against the given store. A userID
// of zero leaves the request anonymous.
func newSubscriptionTestApp(store *stubStore, userID uint) *fiber.App {
	InitializeSubscriptionController(querycache.New(store))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
				UserID:     userID,
				Username:   "tester",
				IsLoggedIn: true,
			})
		}
		return c.Next()
	})

	app.Get("/subscriptions", HandleListSubscriptions)
	app.Post("/subscriptions", HandleCreateSubscription)
	app.Get("/subscriptions/:uuid", HandleGetSubscription)
	app.Put("/subscriptions/:uuid", HandleUpdateSubscription)
	app.Delete("/subscriptions/:uuid", HandleDeleteSubscription)
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestSubscriptionRoutesRequireLogin(t *testing.T) {
	app := newSubscriptionTestApp(newStubStore(), 0)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/subscriptions", nil),
		httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1", nil),
		jsonRequest(http.MethodPost, "/subscriptions", `{}`),
		httptest.NewRequest(http.MethodDelete, "/subscriptions/sub-1", nil),
	} {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, req.Method+" "+req.URL.Path)
	}
}

func TestListSubscriptionsServesOwnerData(t *testing.T) {
	store := newStubStore()
	store.seed(7, "Netflix")
	store.seed(8, "Spotify")
	app := newSubscriptionTestApp(store, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "Netflix")
	assert.NotContains(t, body, "Spotify")
	assert.Contains(t, body, `"state":"fresh"`)
}

func TestGetSubscriptionMissingIsNotFound(t *testing.T) {
	app := newSubscriptionTestApp(newStubStore(), 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetSubscriptionForeignOwnerIsNotFound(t *testing.T) {
	store := newStubStore()
	id := store.seed(8, "Spotify")
	app := newSubscriptionTestApp(store, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateSubscription(t *testing.T) {
	store := newStubStore()
	app := newSubscriptionTestApp(store, 7)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/subscriptions",
		`{"name":"Netflix","price":12.99,"currency":"EUR","billing_cycle":"monthly","renewal_date":"2026-03-15"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "sub-1")

	sub, err := store.GetByID(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, uint(7), sub.UserID)
}

func TestCreateSubscriptionRejectsInvalidPayload(t *testing.T) {
	app := newSubscriptionTestApp(newStubStore(), 7)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/subscriptions",
		`{"name":"","price":-1,"currency":"EURO","billing_cycle":"sometimes","renewal_date":"15.03.2026"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUpdateSubscriptionRewritesRecord(t *testing.T) {
	store := newStubStore()
	id := store.seed(7, "Netflix")
	app := newSubscriptionTestApp(store, 7)

	resp, err := app.Test(jsonRequest(http.MethodPut, "/subscriptions/"+id,
		`{"name":"Netflix Premium","price":17.99,"currency":"EUR","billing_cycle":"monthly","renewal_date":"2026-03-15"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	sub, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "Netflix Premium", sub.Name)
	assert.Equal(t, 17.99, sub.Price)
}

func TestDeleteSubscriptionInvalidatesOwnerList(t *testing.T) {
	store := newStubStore()
	id := store.seed(7, "Netflix")
	app := newSubscriptionTestApp(store, 7)

	// Warm the list cache.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, store.queryByOwnerCalls)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/subscriptions/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, store.deleteCalls)

	// The cached list was invalidated, so the next read hits the store again
	// and no longer contains the deleted record.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, store.queryByOwnerCalls)
	assert.NotContains(t, readBody(t, resp), "Netflix")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/subscriptions/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteForeignSubscriptionIsNotFound(t *testing.T) {
	store := newStubStore()
	id := store.seed(8, "Spotify")
	app := newSubscriptionTestApp(store, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/subscriptions/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, store.deleteCalls)
}
