package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appSettlement "github.com/jastip-hub/jastip-hub/internal/application/settlement"
	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/session"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/memlock"
)

// MockSessionRepository is a mock implementation of session.Repository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *session.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockSessionRepository) ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]*session.Session, error) {
	args := m.Called(ctx, hostID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

func (m *MockSessionRepository) ListOpenByHost(ctx context.Context, hostID uuid.UUID) ([]*session.Session, error) {
	args := m.Called(ctx, hostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*session.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, sessionID uuid.UUID, from, to session.Status, closedAt time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, from, to, closedAt)
	return args.Bool(0), args.Error(1)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*order.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

// MockDisbursementRepository is a mock implementation of disbursement.Repository
type MockDisbursementRepository struct {
	mock.Mock
}

func (m *MockDisbursementRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*disbursement.Disbursement, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*disbursement.Disbursement), args.Error(1)
}

func (m *MockDisbursementRepository) Upsert(ctx context.Context, d *disbursement.Disbursement) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockEmitter is a mock implementation of notification.Emitter
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) Emit(sessionID uuid.UUID, event string, payload interface{}) {
	m.Called(sessionID, event, payload)
}

type fixture struct {
	sessions *MockSessionRepository
	orders   *MockOrderRepository
	disb     *MockDisbursementRepository
	emitter  *MockEmitter
	svc      *Service
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		sessions: new(MockSessionRepository),
		orders:   new(MockOrderRepository),
		disb:     new(MockDisbursementRepository),
		emitter:  new(MockEmitter),
	}
	settlementSvc := appSettlement.NewService(f.orders, "", zerolog.Nop())
	f.svc = NewService(f.sessions, f.orders, f.disb, settlementSvc, f.emitter, memlock.New(), zerolog.Nop())
	f.svc.now = func() time.Time { return now }
	return f
}

func testSession(hostID uuid.UUID, now time.Time) *session.Session {
	return &session.Session{
		SessionID:       uuid.New(),
		HostID:          hostID,
		Title:           "GBK CFD run",
		LocationName:    "Senayan",
		DurationMinutes: 15,
		MaxGuests:       5,
		Status:          session.StatusOpen,
		CreatedAt:       now.Add(-1 * time.Minute),
	}
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Now().UTC())

	_, err := f.svc.Create(ctx, CreateInput{
		HostID:          uuid.New(),
		Title:           "",
		DurationMinutes: 15,
		MaxGuests:       5,
	})

	assert.ErrorIs(t, err, session.ErrValidation)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestFinishClosesOpenSession(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)
	f.sessions.On("UpdateStatus", ctx, sess.SessionID, session.StatusOpen, session.StatusClosed, now).Return(true, nil)
	f.emitter.On("Emit", sess.SessionID, notification.EventSessionPhase, mock.Anything).Return().Once()

	got, err := f.svc.Finish(ctx, sess.SessionID, hostID)

	require.NoError(t, err)
	assert.Equal(t, session.StatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	// The closedAt handed back is the same instant the guarded write stored.
	assert.True(t, got.ClosedAt.Equal(now))
	f.sessions.AssertExpectations(t)
	f.emitter.AssertExpectations(t)
}

func TestFinishRejectsNonHost(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	sess := testSession(uuid.New(), now)
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)

	_, err := f.svc.Finish(ctx, sess.SessionID, uuid.New())

	assert.ErrorIs(t, err, session.ErrNotHost)
	f.sessions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinishTerminalSessionIsNoOp(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	sess.Status = session.StatusClosed
	closedAt := now.Add(-time.Minute)
	sess.ClosedAt = &closedAt
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)

	got, err := f.svc.Finish(ctx, sess.SessionID, hostID)

	require.NoError(t, err)
	assert.Equal(t, session.StatusClosed, got.Status)
	f.sessions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.emitter.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinishLosingRaceReturnsWinner(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	expired := *sess
	expired.Status = session.StatusExpired
	f := newFixture(now)

	// The guarded write matched no row: expiry got there first.
	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil).Once()
	f.sessions.On("UpdateStatus", ctx, sess.SessionID, session.StatusOpen, session.StatusClosed, mock.Anything).Return(false, nil)
	f.sessions.On("GetByID", ctx, sess.SessionID).Return(&expired, nil).Once()

	got, err := f.svc.Finish(ctx, sess.SessionID, hostID)

	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, got.Status)
	f.emitter.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpireWritesBackTerminalStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	sess.CreatedAt = now.Add(-30 * time.Minute)
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)
	f.sessions.On("UpdateStatus", ctx, sess.SessionID, session.StatusOpen, session.StatusExpired, now).Return(true, nil)

	f.svc.expire(ctx, sess.SessionID)

	f.sessions.AssertExpectations(t)
}

func TestExpireSkipsSessionAlreadyClosed(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	sess.Status = session.StatusClosed
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)

	f.svc.expire(ctx, sess.SessionID)

	f.sessions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestActivePicksNewestOpenSession(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	older := testSession(hostID, now)
	older.CreatedAt = now.Add(-10 * time.Minute)
	newer := testSession(hostID, now)
	newer.CreatedAt = now.Add(-2 * time.Minute)
	f := newFixture(now)

	f.sessions.On("ListOpenByHost", ctx, hostID).Return([]*session.Session{older, newer}, nil)

	got, err := f.svc.Active(ctx, hostID)

	require.NoError(t, err)
	assert.Equal(t, newer.SessionID, got.SessionID)
}

func TestViewAssemblesSettlement(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hostID := uuid.New()
	sess := testSession(hostID, now)
	guest := uuid.New()
	orders := []*order.Order{
		{
			OrderID:       uuid.New(),
			SessionID:     sess.SessionID,
			RequesterID:   guest,
			ItemName:      "kopi susu gula aren",
			Quantity:      2,
			PriceEstimate: 24000,
			JastipFee:     5000,
			Status:        order.StatusAccepted,
		},
	}
	f := newFixture(now)

	f.sessions.On("GetByID", ctx, sess.SessionID).Return(sess, nil)
	f.orders.On("ListBySession", ctx, sess.SessionID).Return(orders, nil)
	f.disb.On("GetBySession", ctx, sess.SessionID).Return(nil, nil)

	view, err := f.svc.View(ctx, sess.SessionID)

	require.NoError(t, err)
	assert.Equal(t, session.PhaseOpen, view.Phase)
	require.Len(t, view.Bills, 1)
	assert.Equal(t, guest, view.Bills[0].GuestID)
	assert.Equal(t, int64(53000), view.Bills[0].SubTotal)
	assert.Equal(t, int64(48000), view.HostNet.Net)
	require.NotNil(t, view.Disbursement)
	assert.Equal(t, disbursement.StatusNone, view.Disbursement.Status)
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{14*time.Minute + 59*time.Second, "14:59"},
		{2 * time.Minute, "2:00"},
		{7 * time.Second, "0:07"},
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
	}
	for _, c := range cases {
		if got := FormatRemaining(c.d); got != c.want {
			t.Fatalf("FormatRemaining(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
