package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/config"
	"coursehub/internal/mail"
	"coursehub/internal/models"
	"coursehub/internal/repository"
)

var testSecurity = config.SecurityConfig{
	JWTAccessSecret:     "access-secret",
	JWTRefreshSecret:    "refresh-secret",
	JWTActivationSecret: "activation-secret",
	JWTAccessTTL:        5 * time.Minute,
	JWTRefreshTTL:       72 * time.Hour,
	ActivationTTL:       5 * time.Minute,
	ResetCodeTTL:        10 * time.Minute,
}

var nopLog = zerolog.Nop()

func clone[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	fails error
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return models.User{}, repository.ErrEmailTaken
		}
	}
	if user.Courses == nil {
		user.Courses = []models.CourseRef{}
	}
	user.CreatedAt = time.Now()
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return models.User{}, f.fails
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) update(id string, fn func(*models.User)) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	fn(&u)
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) UpdateName(_ context.Context, id, name string) (models.User, error) {
	return f.update(id, func(u *models.User) { u.Name = name })
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) (models.User, error) {
	return f.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.PasswordResetCode = ""
		u.PasswordResetExpiresAt = nil
		u.PasswordResetVerified = false
	})
}

func (f *fakeUsers) UpdateAvatar(_ context.Context, id string, avatar models.Avatar) (models.User, error) {
	return f.update(id, func(u *models.User) { u.Avatar = avatar })
}

func (f *fakeUsers) UpdateRole(_ context.Context, id string, role models.UserRole) (models.User, error) {
	return f.update(id, func(u *models.User) { u.Role = role })
}

func (f *fakeUsers) addCourse(id, courseID string) (models.User, error) {
	return f.update(id, func(u *models.User) {
		if !u.HasCourse(courseID) {
			u.Courses = append(u.Courses, models.CourseRef{CourseID: courseID})
		}
	})
}

func (f *fakeUsers) SetResetCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	_, err := f.update(id, func(u *models.User) {
		u.PasswordResetCode = codeHash
		u.PasswordResetExpiresAt = &expiresAt
		u.PasswordResetVerified = false
	})
	return err
}

func (f *fakeUsers) MarkResetVerified(_ context.Context, id string) error {
	_, err := f.update(id, func(u *models.User) { u.PasswordResetVerified = true })
	return err
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]models.User
	ttls map[string]time.Duration
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]models.User{}, ttls: map[string]time.Duration{}}
}

func (f *fakeSessions) Get(_ context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return models.User{}, repository.ErrSessionNotFound
	}
	return clone(u), nil
}

func (f *fakeSessions) Set(_ context.Context, user models.User, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[user.ID] = clone(user)
	f.ttls[user.ID] = ttl
	return nil
}

func (f *fakeSessions) Replace(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; ok {
		f.byID[user.ID] = clone(user)
	}
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, userID)
	return nil
}

type fakePending struct {
	byID     map[string]models.PendingRegistration
	attempts map[string]int64
}

func newFakePending() *fakePending {
	return &fakePending{byID: map[string]models.PendingRegistration{}, attempts: map[string]int64{}}
}

func (f *fakePending) RecordFailedAttempt(_ context.Context, id string, _ time.Duration) (int64, error) {
	f.attempts[id]++
	return f.attempts[id], nil
}

func (f *fakePending) Save(_ context.Context, p models.PendingRegistration, _ time.Duration) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakePending) Get(_ context.Context, id string) (models.PendingRegistration, error) {
	p, ok := f.byID[id]
	if !ok {
		return models.PendingRegistration{}, repository.ErrPendingNotFound
	}
	return p, nil
}

func (f *fakePending) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	delete(f.attempts, id)
	return nil
}

// fakeCourses enforces the version check like the postgres store. onGet,
// when set, runs once before the next GetByID returns.
type fakeCourses struct {
	mu        sync.Mutex
	byID      map[string]models.Course
	onGet     func()
	conflicts int
}

func newFakeCourses(courses ...models.Course) *fakeCourses {
	f := &fakeCourses{byID: map[string]models.Course{}}
	for _, c := range courses {
		if c.Version == 0 {
			c.Version = 1
		}
		f.byID[c.ID] = clone(c)
	}
	return f
}

func (f *fakeCourses) Create(_ context.Context, c models.Course) (models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.Version = 1
	c.CreatedAt = time.Now()
	f.byID[c.ID] = clone(c)
	return c, nil
}

func (f *fakeCourses) GetByID(_ context.Context, id string) (models.Course, error) {
	f.mu.Lock()
	c, ok := f.byID[id]
	hook := f.onGet
	f.onGet = nil
	f.mu.Unlock()

	if !ok {
		return models.Course{}, repository.ErrCourseNotFound
	}
	if hook != nil {
		hook()
	}
	return clone(c), nil
}

func (f *fakeCourses) List(_ context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Course, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCourses) Update(_ context.Context, c models.Course) (models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[c.ID]
	if !ok {
		return models.Course{}, repository.ErrCourseNotFound
	}
	if stored.Version != c.Version {
		f.conflicts++
		return models.Course{}, repository.ErrCourseConflict
	}
	c.Version++
	c.Purchased = stored.Purchased
	f.byID[c.ID] = clone(c)
	return clone(c), nil
}

func (f *fakeCourses) IncrementPurchased(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrCourseNotFound
	}
	c.Purchased++
	f.byID[id] = c
	return nil
}

func (f *fakeCourses) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrCourseNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCourses) stored(id string) models.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.byID[id])
}

type fakeCourseCache struct {
	mu          sync.Mutex
	byID        map[string]models.Course
	list        []models.Course
	gen         int64
	invalidated []string
}

func (f *fakeCourseCache) Generation(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen, nil
}

func newFakeCourseCache() *fakeCourseCache {
	return &fakeCourseCache{byID: map[string]models.Course{}}
}

func (f *fakeCourseCache) Get(_ context.Context, id string) (models.Course, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	return c, ok, nil
}

func (f *fakeCourseCache) Set(_ context.Context, c models.Course, gen int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCourseCache) GetList(_ context.Context) ([]models.Course, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, f.list != nil, nil
}

func (f *fakeCourseCache) SetList(_ context.Context, courses []models.Course, gen int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return nil
	}
	f.list = courses
	return nil
}

func (f *fakeCourseCache) Invalidate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.list = nil
	f.gen++
	f.invalidated = append(f.invalidated, id)
	return nil
}

// fakeOrders grants through users and keeps the order only when the grant
// succeeds, like the postgres transaction.
type fakeOrders struct {
	users    *fakeUsers
	grantErr error
	orders   []models.Order
}

func (f *fakeOrders) CreateAndGrant(_ context.Context, o models.Order) (models.Order, models.User, error) {
	for _, existing := range f.orders {
		if existing.UserID == o.UserID && existing.CourseID == o.CourseID {
			return models.Order{}, models.User{}, repository.ErrOrderExists
		}
	}
	if f.grantErr != nil {
		return models.Order{}, models.User{}, f.grantErr
	}
	buyer, err := f.users.addCourse(o.UserID, o.CourseID)
	if err != nil {
		return models.Order{}, models.User{}, err
	}
	o.CreatedAt = time.Now()
	f.orders = append(f.orders, o)
	return o, buyer, nil
}

func (f *fakeOrders) ListDetailed(_ context.Context) ([]models.OrderDetail, error) {
	out := make([]models.OrderDetail, len(f.orders))
	for i, o := range f.orders {
		out[i] = models.OrderDetail{Order: o}
	}
	return out, nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (f *fakeNotifications) Create(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotifications) List(_ context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...), nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Status = models.NotificationRead
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (f *fakeNotifications) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Dispatch(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}

type fakeObjects struct {
	objects map[string][]byte
	removed []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, bucket, key string) error {
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, bucket+"/"+key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) PublicURL(bucket, key string) string {
	return "http://media.test/" + bucket + "/" + key
}
