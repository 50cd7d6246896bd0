package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/images"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/searches"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		DBAcquireTimeout:             time.Second,
		SearchTimeout:                time.Second,
		ImageTimeout:                 time.Second,
	}
}

// memDB is an in-memory stand-in for the whole schema.
type memDB struct {
	mu       sync.Mutex
	clock    func() time.Time
	users    map[string]*models.User
	tokens   map[string]models.RefreshToken
	searches []models.SearchRecord
	images   []models.ImageRecord

	usersErr    error
	tokensErr   error
	searchesErr error
	imagesErr   error
}

func newMemDB() *memDB {
	return &memDB{
		clock:  time.Now,
		users:  map[string]*models.User{},
		tokens: map[string]models.RefreshToken{},
	}
}

func (m *memDB) now() time.Time { return m.clock().UTC() }

// fakeRepoManager hands out memDB-backed repositories regardless of DBTX.
type fakeRepoManager struct {
	db *memDB
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository               { return memUsers{f.db} }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memTokens{f.db}
}
func (f *fakeRepoManager) Searches(dbx.DBTX) searches.Repository { return memSearches{f.db} }
func (f *fakeRepoManager) Images(dbx.DBTX) images.Repository     { return memImages{f.db} }

type memUsers struct{ m *memDB }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.usersErr != nil {
		return nil, r.m.usersErr
	}
	for _, existing := range r.m.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = r.m.now()
	cp := *u
	r.m.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.usersErr != nil {
		return nil, r.m.usersErr
	}
	for _, u := range r.m.users {
		if u.UserName == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.usersErr != nil {
		return nil, r.m.usersErr
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) List(ctx context.Context) ([]models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.usersErr != nil {
		return nil, r.m.usersErr
	}
	out := make([]models.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		cp := *u
		cp.PasswordHash = ""
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.usersErr != nil {
		return 0, r.m.usersErr
	}
	return int64(len(r.m.users)), nil
}

type memTokens struct{ m *memDB }

func (r memTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.tokensErr != nil {
		return r.m.tokensErr
	}
	cp := *t
	cp.CreatedAt = r.m.now()
	r.m.tokens[t.ID] = cp
	return nil
}

func (r memTokens) Find(ctx context.Context, id string) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.tokensErr != nil {
		return nil, r.m.tokensErr
	}
	t, ok := r.m.tokens[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r memTokens) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.tokensErr != nil {
		return r.m.tokensErr
	}
	delete(r.m.tokens, id)
	return nil
}

func (r memTokens) DeleteExpired(ctx context.Context, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, t := range r.m.tokens {
		if t.UserID == userID && !t.Expires.After(r.m.now()) {
			delete(r.m.tokens, id)
		}
	}
	return nil
}

// page returns newest-first [offset, offset+limit) of n items ordered oldest first.
func page(n, limit, offset int) []int {
	idx := make([]int, 0, limit)
	for i := n - 1 - offset; i >= 0 && len(idx) < limit; i-- {
		idx = append(idx, i)
	}
	return idx
}

func counts(times []time.Time, since time.Time) models.ActivityCounts {
	var c models.ActivityCounts
	for _, t := range times {
		c.Total++
		if !t.Before(since) {
			c.Today++
		}
		if c.LastActivity == nil || t.After(*c.LastActivity) {
			tt := t
			c.LastActivity = &tt
		}
	}
	return c
}

type memSearches struct{ m *memDB }

func (r memSearches) Create(ctx context.Context, rec *models.SearchRecord) (*models.SearchRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.searchesErr != nil {
		return nil, r.m.searchesErr
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.m.now()
	r.m.searches = append(r.m.searches, *rec)
	return rec, nil
}

func (r memSearches) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.SearchRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.searchesErr != nil {
		return nil, r.m.searchesErr
	}
	var own []models.SearchRecord
	for _, s := range r.m.searches {
		if s.OwnerID == ownerID {
			own = append(own, s)
		}
	}
	out := make([]models.SearchRecord, 0)
	for _, i := range page(len(own), limit, offset) {
		out = append(out, own[i])
	}
	return out, nil
}

func (r memSearches) Delete(ctx context.Context, id, ownerID string, asAdmin bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.searchesErr != nil {
		return r.m.searchesErr
	}
	for i, s := range r.m.searches {
		if s.ID == id && (s.OwnerID == ownerID || asAdmin) {
			r.m.searches = append(r.m.searches[:i], r.m.searches[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r memSearches) CountByOwner(ctx context.Context, ownerID string, since time.Time) (models.ActivityCounts, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.searchesErr != nil {
		return models.ActivityCounts{}, r.m.searchesErr
	}
	var ts []time.Time
	for _, s := range r.m.searches {
		if s.OwnerID == ownerID {
			ts = append(ts, s.CreatedAt)
		}
	}
	return counts(ts, since), nil
}

func (r memSearches) CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ts []time.Time
	for _, s := range r.m.searches {
		ts = append(ts, s.CreatedAt)
	}
	return counts(ts, since), nil
}

type memImages struct{ m *memDB }

func (r memImages) Create(ctx context.Context, rec *models.ImageRecord) (*models.ImageRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.imagesErr != nil {
		return nil, r.m.imagesErr
	}
	if !rec.Artifact.Valid() {
		return nil, fmt.Errorf("%w: artifact", common.ErrorValidation)
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.m.now()
	r.m.images = append(r.m.images, *rec)
	return rec, nil
}

func (r memImages) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ImageRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.imagesErr != nil {
		return nil, r.m.imagesErr
	}
	var own []models.ImageRecord
	for _, s := range r.m.images {
		if s.OwnerID == ownerID {
			own = append(own, s)
		}
	}
	out := make([]models.ImageRecord, 0)
	for _, i := range page(len(own), limit, offset) {
		out = append(out, own[i])
	}
	return out, nil
}

func (r memImages) Delete(ctx context.Context, id, ownerID string, asAdmin bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, s := range r.m.images {
		if s.ID == id && (s.OwnerID == ownerID || asAdmin) {
			r.m.images = append(r.m.images[:i], r.m.images[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r memImages) CountByOwner(ctx context.Context, ownerID string, since time.Time) (models.ActivityCounts, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ts []time.Time
	for _, s := range r.m.images {
		if s.OwnerID == ownerID {
			ts = append(ts, s.CreatedAt)
		}
	}
	return counts(ts, since), nil
}

func (r memImages) CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ts []time.Time
	for _, s := range r.m.images {
		ts = append(ts, s.CreatedAt)
	}
	return counts(ts, since), nil
}

// fakeSearchProvider returns a fixed set of hits and counts calls.
type fakeSearchProvider struct {
	mu    sync.Mutex
	items []models.ResultItem
	err   error
	calls int

	ctxErr      error
	hasDeadline bool
}

func (f *fakeSearchProvider) Search(ctx context.Context, query string, maxResults int) ([]models.ResultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErr = ctx.Err()
	_, f.hasDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > maxResults {
		return f.items[:maxResults], nil
	}
	return f.items, nil
}

type fakeImageProvider struct {
	artifact models.Artifact
	err      error
	calls    int
}

func (f *fakeImageProvider) GenerateImage(ctx context.Context, prompt string, p models.ImageParameters) (models.Artifact, error) {
	f.calls++
	if f.err != nil {
		return models.Artifact{}, f.err
	}
	return f.artifact, nil
}

type fakeArtifactStore struct {
	putErr error
	urlErr error
	puts   int
}

func (f *fakeArtifactStore) Put(ctx context.Context, ownerID, dataURI string) (string, error) {
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	return "images/" + ownerID + "/" + uuid.NewString() + ".png", nil
}

func (f *fakeArtifactStore) URL(ctx context.Context, key string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://signed.example/" + key, nil
}

// testServices bundles every service over one memDB.
type testServices struct {
	mem       *memDB
	users     *UserService
	search    *SearchService
	image     *ImageService
	records   *RecordService
	dashboard *DashboardService
	admin     *AdminService
	searchP   *fakeSearchProvider
	imageP    *fakeImageProvider
}

func newTestServices(store ArtifactStore) *testServices {
	mem := newMemDB()
	rm := &fakeRepoManager{db: mem}
	cfg := testConfig()
	log := logging.Nop{}

	sp := &fakeSearchProvider{}
	ip := &fakeImageProvider{artifact: models.Artifact{URL: "https://img.example/1.png"}}

	return &testServices{
		mem:       mem,
		users:     NewUserService(nil, rm, cfg, log),
		search:    NewSearchService(nil, rm, sp, cfg, log),
		image:     NewImageService(nil, rm, ip, store, cfg, log),
		records:   NewRecordService(nil, rm, store, cfg, log),
		dashboard: NewDashboardService(nil, rm, store, cfg, log),
		admin:     NewAdminService(nil, rm, cfg, log),
		searchP:   sp,
		imageP:    ip,
	}
}

// register creates a user and returns its caller identity.
func (ts *testServices) register(ctx context.Context, username string) (Caller, error) {
	u, err := ts.users.Register(ctx, username, "pw123456")
	if err != nil {
		return Caller{}, err
	}
	return Caller{UserID: u.ID, Role: u.Role}, nil
}
