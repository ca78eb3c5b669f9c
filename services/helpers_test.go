package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restaurant-directory-api/access"
	"restaurant-directory-api/auth"
	"restaurant-directory-api/config"
	"restaurant-directory-api/models"
	"restaurant-directory-api/notify"
	"restaurant-directory-api/storage"
)

const testPassword = "Passw0rd#"

type sentMail struct {
	To   string
	Kind notify.Kind
	Data notify.Data
}

type testEnv struct {
	db          *gorm.DB
	creds       *auth.Service
	dispatcher  *notify.Dispatcher
	store       storage.ObjectStore
	users       *UserService
	reviews     *ReviewService
	restaurants *RestaurantService

	mu   sync.Mutex
	sent []sentMail
}

type envOption func(*testEnv)

func withStore(s storage.ObjectStore) envOption {
	return func(e *testEnv) { e.store = s }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := config.OpenDB(&config.Config{
		DBDriver: "sqlite",
		DBPath:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:    db,
		creds: auth.NewService("test-secret", time.Hour, auth.WithCost(bcrypt.MinCost)),
	}

	ctrl := gomock.NewController(t)
	notifier := notify.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, to string, kind notify.Kind, data notify.Data) error {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.sent = append(env.sent, sentMail{To: to, Kind: kind, Data: data})
			return nil
		}).AnyTimes()
	env.dispatcher = notify.NewDispatcher(notifier, discardLogger())
	t.Cleanup(env.dispatcher.Wait)

	store, err := storage.NewLocalStore(t.TempDir(), "http://files.test/uploads")
	require.NoError(t, err)
	env.store = store
	for _, opt := range opts {
		opt(env)
	}

	mailer := NewMailer(env.dispatcher, env.creds, "http://frontend.test")
	env.users = NewUserService(db, env.creds, mailer)
	env.reviews = NewReviewService(db)
	env.restaurants = NewRestaurantService(db, env.store, mailer, 5<<20)
	return env
}

// mails waits for pending notifications and returns those sent so far.
func (e *testEnv) mails() []sentMail {
	e.dispatcher.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sentMail(nil), e.sent...)
}

func (e *testEnv) mailsOfKind(kind notify.Kind) []sentMail {
	var out []sentMail
	for _, m := range e.mails() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (e *testEnv) user(t *testing.T, email string, role models.UserRole) access.Actor {
	t.Helper()
	var u *models.User
	var err error
	if role == models.RoleAdmin {
		u, err = e.users.CreateAdmin(context.Background(), "Admin", email, testPassword)
	} else {
		var res *AuthResult
		res, err = e.users.Register(context.Background(), "Test "+string(role), email, testPassword, role)
		if err == nil {
			u = &models.User{ID: res.ID, Role: res.Role}
		}
	}
	require.NoError(t, err)
	return access.Actor{UserID: u.ID, Role: role}
}

func (e *testEnv) restaurant(t *testing.T, owner access.Actor, name string) *RestaurantView {
	t.Helper()
	r, err := e.restaurants.Create(context.Background(), owner, sampleInput(name))
	require.NoError(t, err)
	return r
}

func (e *testEnv) approved(t *testing.T, owner, admin access.Actor, name string) *RestaurantView {
	t.Helper()
	r := e.restaurant(t, owner, name)
	_, err := e.restaurants.Approve(context.Background(), admin, r.ID)
	require.NoError(t, err)
	return r
}

func (e *testEnv) status(t *testing.T, id uuid.UUID) models.RestaurantStatus {
	t.Helper()
	var r models.Restaurant
	require.NoError(t, e.db.First(&r, "id = ?", id).Error)
	return r.Status
}

func (e *testEnv) restaurantRow(t *testing.T, id uuid.UUID) models.Restaurant {
	t.Helper()
	var r models.Restaurant
	require.NoError(t, e.db.First(&r, "id = ?", id).Error)
	return r
}

// staleRead makes the next load of restaurant id report status, as if it
// was read before a concurrent transition committed.
func (e *testEnv) staleRead(t *testing.T, id uuid.UUID, status models.RestaurantStatus) {
	t.Helper()
	pending := true
	err := e.db.Callback().Query().After("gorm:query").Register("test:stale_read_"+id.String(), func(tx *gorm.DB) {
		r, ok := tx.Statement.Dest.(*models.Restaurant)
		if !pending || !ok || r.ID != id {
			return
		}
		pending = false
		r.Status = status
	})
	require.NoError(t, err)
}

func sampleInput(name string) RestaurantInput {
	return RestaurantInput{
		Name:       name,
		Street:     "12 Main St",
		City:       "Pune",
		State:      "MH",
		Pincode:    "411001",
		Category:   "Cafe",
		PriceRange: models.PriceMedium,
	}
}

func imageUpload(name, body string) Upload {
	return Upload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
