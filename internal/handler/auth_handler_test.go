package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

type fakeAuthService struct {
	loginResp    *models.LoginResponse
	loginErr     error
	registerInfo *models.PrincipalInfo
	registerResp *models.LoginResponse
	lastCaller   *models.Session
	loggedOut    *models.Session
}

func (f *fakeAuthService) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuthService) Register(_ context.Context, _ models.RegisterRequest, caller *models.Session) (*models.PrincipalInfo, *models.LoginResponse, error) {
	f.lastCaller = caller
	return f.registerInfo, f.registerResp, nil
}

func (f *fakeAuthService) Logout(_ context.Context, session *models.Session) error {
	f.loggedOut = session
	return nil
}

func (f *fakeAuthService) Me(_ context.Context, session *models.Session) (*models.PrincipalInfo, error) {
	return &models.PrincipalInfo{ID: session.PrincipalID, DisplayName: session.DisplayName, Role: session.Role}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &fakeAuthService{loginResp: &models.LoginResponse{AccessToken: "token-1"}}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/login", models.LoginRequest{TenantID: "school-a", Role: models.RoleStudent, StudentNumber: "10101", Password: "pw"}, nil)
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resp))
	assert.Equal(t, "token-1", resp.AccessToken)
}

func TestAuthHandlerLoginWrongRole(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{loginErr: appErrors.ErrWrongRole})

	c, rec := newTestContext(http.MethodPost, "/auth/login", models.LoginRequest{TenantID: "school-a", Role: models.RoleTeacher, DisplayName: "Jisoo", Password: "pw"}, nil)
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "WRONG_ROLE", decodeEnvelope(t, rec).Error["code"])
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodPost, "/auth/login", nil, nil)
	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerRegisterWithoutSessionReturnsInfo(t *testing.T) {
	svc := &fakeAuthService{registerInfo: &models.PrincipalInfo{ID: "student-9", DisplayName: "Minho"}}
	handler := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/register", models.RegisterRequest{TenantID: "school-a", Role: models.RoleStudent, DisplayName: "Minho", StudentNumber: "10102", Password: "pass"}, nil)
	handler.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, svc.lastCaller)
	var info models.PrincipalInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, "student-9", info.ID)
}

func TestAuthHandlerRegisterPassesCaller(t *testing.T) {
	svc := &fakeAuthService{registerInfo: &models.PrincipalInfo{ID: "student-9"}}
	handler := NewAuthHandler(svc)
	caller := teacherSession()

	c, rec := newTestContext(http.MethodPost, "/auth/register", models.RegisterRequest{TenantID: "school-a", Role: models.RoleStudent, DisplayName: "Minho", StudentNumber: "10102", Password: "pass"}, caller)
	handler.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Same(t, caller, svc.lastCaller)
}

func TestAuthHandlerMeRequiresSession(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := newTestContext(http.MethodGet, "/auth/me", nil, nil)
	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)
	session := studentSession()

	c, rec := newTestContext(http.MethodPost, "/auth/logout", nil, session)
	handler.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Same(t, session, svc.loggedOut)
}
