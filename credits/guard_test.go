package credits

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

type memStore struct {
	profiles  map[string]*models.Profile
	getErr    error
	deductErr error
	deducted  int
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.profiles[userID], nil
}

func (m *memStore) DeductCredit(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.deductErr != nil {
		return 0, m.deductErr
	}
	m.deducted++
	m.profiles[userID].Credits--
	return m.profiles[userID].Credits, nil
}

type countObserver struct{ n int }

func (c *countObserver) CreditDeducted(context.Context) { c.n++ }

func newStore() *memStore {
	return &memStore{profiles: map[string]*models.Profile{
		"rich":  {UserID: "rich", Credits: 5},
		"broke": {UserID: "broke", Credits: 0},
	}}
}

func TestCheck(t *testing.T) {
	g := NewGuard(newStore())
	ctx := context.Background()

	p, err := g.Check(ctx, "rich")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Credits)

	_, err = g.Check(ctx, "broke")
	assert.Equal(t, http.StatusForbidden, errors.Code(err))
	assert.EqualError(t, err, "Insufficient credits")

	_, err = g.Check(ctx, "ghost")
	assert.Equal(t, http.StatusNotFound, errors.Code(err))
	assert.EqualError(t, err, "User profile not found")
}

func TestCheckStoreError(t *testing.T) {
	store := newStore()
	store.getErr = stderrors.New("timeout")
	_, err := NewGuard(store).Check(context.Background(), "rich")
	assert.Equal(t, http.StatusInternalServerError, errors.Code(err))
	assert.ErrorIs(t, err, store.getErr)
}

func TestDeduct(t *testing.T) {
	store := newStore()
	obs := &countObserver{}
	g := NewGuard(store, WithObserver(obs))

	balance, err := g.Deduct(context.Background(), "rich")
	require.NoError(t, err)
	assert.Equal(t, 4, balance)
	assert.Equal(t, 1, store.deducted)
	assert.Equal(t, 1, obs.n)
}

func TestDeductSurvivesCancelledRequest(t *testing.T) {
	store := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGuard(store).Deduct(ctx, "rich")
	require.NoError(t, err)
	assert.Equal(t, 1, store.deducted)
}

func TestDeductFailureIsReported(t *testing.T) {
	store := newStore()
	store.deductErr = stderrors.New("patch failed")
	obs := &countObserver{}

	_, err := NewGuard(store, WithObserver(obs)).Deduct(context.Background(), "rich")
	assert.ErrorIs(t, err, store.deductErr)
	assert.Equal(t, 0, obs.n)
}
