package service

import (
	"bytes"
	"io"
	"testing"
	"time"

	"agro-crm/internal/apierror"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(s string) io.Reader { return bytes.NewReader([]byte(s)) }

func TestStatusAndClientDetail(t *testing.T) {
	e := newEnv(t)
	e.cornSchedule(t)

	st, err := e.refs.Status(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusResponse{OK: true, Clients: 1, Properties: 1, Plots: 1, Plantings: 1, Visits: 5}, *st)

	d, err := e.refs.ClientDetail(e.ctx, e.client.ID)
	require.NoError(t, err)
	require.Len(t, d.Properties, 1)
	require.Len(t, d.Properties[0].Plots, 1)
	require.Len(t, d.RecentVisits, 5)
	assert.Equal(t, "2025-04-20", *d.RecentVisits[0].Date)

	_, err = e.refs.ClientDetail(e.ctx, 999)
	assert.True(t, apierror.IsNotFound(err))

	assert.Len(t, e.refs.Consultants(), 2)
}

func TestAuthLoginAndTokens(t *testing.T) {
	e := newEnv(t)
	u, err := e.auth.CreateUser(e.ctx, nil, dto.CreateUserRequest{Email: "Ana@Farm.io", Password: "secret1", Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, "ana@farm.io", u.Email)

	_, err = e.auth.CreateUser(e.ctx, nil, dto.CreateUserRequest{Email: "ana@farm.io", Password: "secret2"})
	assert.Equal(t, 409, apierror.Status(err))

	_, _, err = e.auth.Login(e.ctx, dto.LoginRequest{Email: "ana@farm.io", Password: "wrong"})
	assert.Equal(t, 401, apierror.Status(err))
	_, _, err = e.auth.Login(e.ctx, dto.LoginRequest{Email: "nobody@farm.io", Password: "x"})
	assert.Equal(t, 401, apierror.Status(err))

	resp, user, err := e.auth.Login(e.ctx, dto.LoginRequest{Email: "ANA@farm.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, user.Role)
	assert.Equal(t, 24*3600, resp.ExpiresIn)

	claims, err := e.auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleViewer, claims.Role)

	other := NewAuthService(e.db, "other-secret", 24)
	_, err = other.ParseToken(resp.Token)
	assert.Equal(t, 401, apierror.Status(err))

	e.auth.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = e.auth.ParseToken(resp.Token)
	assert.Equal(t, 401, apierror.Status(err))

	me, err := e.auth.Me(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", me.Role)
}

func TestAuditTrail(t *testing.T) {
	e := newEnv(t)
	admin, err := e.auth.CreateUser(e.ctx, nil, dto.CreateUserRequest{Email: "admin@x.io", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	_, err = e.visits.Create(e.ctx, &admin.ID, dto.CreateVisitRequest{ClientID: e.client.ID, Date: "2025-01-01"})
	require.NoError(t, err)

	logs, err := e.refs.AuditLogs(e.ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "visit", logs[0].Entity)
	assert.Equal(t, "admin@x.io", logs[0].UserEmail)
	assert.Empty(t, logs[1].UserEmail)
}
