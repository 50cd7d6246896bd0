package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/server/auth"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
)

// fakeUsers accepts the tokens "user-token" and "admin-token".
type fakeUsers struct {
	registerErr error
	loginErr    error
	refreshErr  error
	logoutErr   error
	loggedOut   string
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u1", UserName: username, PasswordHash: "secret-hash", Role: models.RoleUser}, nil
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{AccessToken: "user-token", RefreshToken: "r1", TokenType: "bearer", ExpiresIn: 900}, nil
}

func (f *fakeUsers) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "user-token", RefreshToken: refreshToken, TokenType: "bearer", ExpiresIn: 900}, nil
}

func (f *fakeUsers) Logout(ctx context.Context, refreshToken string) error {
	f.loggedOut = refreshToken
	return f.logoutErr
}

func (f *fakeUsers) Profile(ctx context.Context, caller services.Caller) (*models.User, error) {
	return &models.User{ID: caller.UserID, UserName: "alice", Role: caller.Role}, nil
}

func (f *fakeUsers) VerifyToken(token string) (*auth.Claims, error) {
	switch token {
	case "user-token":
		return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Role: models.RoleUser}, nil
	case "admin-token":
		return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "root"}, Role: models.RoleAdmin}, nil
	case "expired-token":
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}
}

type searchCall struct {
	caller     services.Caller
	query      string
	maxResults int
	save       bool
}

type fakeSearch struct {
	calls []searchCall
	err   error
}

func (f *fakeSearch) PerformSearch(ctx context.Context, caller services.Caller, query string, maxResults int, save bool) (*services.SearchResult, error) {
	f.calls = append(f.calls, searchCall{caller, query, maxResults, save})
	if f.err != nil {
		return nil, f.err
	}
	return &services.SearchResult{
		SearchRecord: models.SearchRecord{
			ID:         "s1",
			OwnerID:    caller.UserID,
			Query:      query,
			MaxResults: maxResults,
			Results:    []models.ResultItem{{Title: "hit"}},
			CreatedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		Saved: save,
	}, nil
}

type fakeImage struct {
	params models.ImageParameters
	save   bool
	err    error
}

func (f *fakeImage) GenerateImage(ctx context.Context, caller services.Caller, prompt string, p models.ImageParameters, save bool) (*services.ImageResult, error) {
	f.params, f.save = p, save
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImageResult{
		ImageRecord: models.ImageRecord{Prompt: prompt, Parameters: p, Artifact: models.Artifact{URL: "https://img.example/1.png"}},
		Saved:       save,
	}, nil
}

type fakeRecords struct {
	page      services.Pagination
	kind      models.RecordKind
	deleted   string
	deleteErr error
	listErr   error
}

func (f *fakeRecords) ListHistory(ctx context.Context, caller services.Caller, kind models.RecordKind, page services.Pagination) (*services.History, error) {
	f.kind, f.page = kind, page
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &services.History{Kind: kind, Limit: page.Limit, Offset: page.Offset}, nil
}

func (f *fakeRecords) DeleteRecord(ctx context.Context, caller services.Caller, kind models.RecordKind, id string) error {
	f.kind, f.deleted = kind, id
	return f.deleteErr
}

type fakeDashboard struct{}

func (fakeDashboard) Dashboard(ctx context.Context, caller services.Caller) (*models.Dashboard, error) {
	return &models.Dashboard{Stats: models.DashboardStats{TotalSearches: 1}}, nil
}

type fakeAdmin struct{}

func (fakeAdmin) ListUsers(ctx context.Context, caller services.Caller) ([]models.User, error) {
	if !caller.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	return []models.User{{ID: "u1", UserName: "alice"}}, nil
}

func (fakeAdmin) SystemStats(ctx context.Context, caller services.Caller) (*models.SystemStats, error) {
	if !caller.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	return &models.SystemStats{TotalUsers: 1}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
