package auth

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/teams-kdbx/internal/store"
)

// fakeStrategy posts a canned reply for each attempt.
type fakeStrategy struct {
	mode     Mode
	redirect string
	beginErr error
	calls    atomic.Int32
	inbox    *Inbox
	// reply builds the message for an attempt; nil posts nothing.
	reply func(att Attempt) *Message
	// authURLs records the rendered authorize URLs.
	authURLs []string
}

func (f *fakeStrategy) Mode() Mode { return f.mode }

func (f *fakeStrategy) Begin(_ context.Context, att Attempt) (string, error) {
	f.calls.Add(1)

	if f.beginErr != nil {
		return "", f.beginErr
	}

	f.authURLs = append(f.authURLs, att.AuthURL(f.redirect))

	if f.reply != nil {
		if msg := f.reply(att); msg != nil {
			go f.inbox.Post(att.State, *msg)
		}
	}

	return f.redirect, nil
}

func codeReply(code string) func(Attempt) *Message {
	return func(att Attempt) *Message {
		return &Message{Fields: map[string]string{"state": att.State, "code": code}}
	}
}

func newTestCoordinator(t *testing.T, strat *fakeStrategy) (*Coordinator, *tokenServer, *store.Store) {
	t.Helper()

	ts := newTokenServer(t)
	st := newTestStore(t)
	inbox := NewInbox(nil)
	strat.inbox = inbox

	if strat.mode == "" {
		strat.mode = ModeDirectPopup
	}

	if strat.redirect == "" {
		strat.redirect = "http://localhost:5555"
	}

	c := NewCoordinator(testSettings(ts.URL, testOrigin), strat, inbox, st, ts.Client(), nil)

	return c, ts, st
}

func TestLogin_ExchangesCodeAndStoresToken(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("abc")}
	c, ts, st := newTestCoordinator(t, strat)

	src, err := c.Login(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", tok)

	form := ts.form()
	assert.Equal(t, "authorization_code", form["grant_type"])
	assert.Equal(t, "abc", form["code"])
	assert.Equal(t, "http://localhost:5555", form["redirect_uri"])
	assert.Equal(t, ProductionClientID, form["client_id"])
	assert.NotEmpty(t, form["code_verifier"])

	rec, err := loadToken(context.Background(), st, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, "access-abc", rec.Token.AccessToken)
	assert.Equal(t, "popup", rec.Meta["mode"])
}

func TestLogin_FreshStatePerAttempt(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("abc")}
	c, _, _ := newTestCoordinator(t, strat)

	_, err := c.Login(context.Background())
	require.NoError(t, err)
	_, err = c.Login(context.Background())
	require.NoError(t, err)

	require.Len(t, strat.authURLs, 2)

	first, err := url.Parse(strat.authURLs[0])
	require.NoError(t, err)
	second, err := url.Parse(strat.authURLs[1])
	require.NoError(t, err)

	assert.NotEqual(t, first.Query().Get("state"), second.Query().Get("state"))
	assert.NotEqual(t, first.Query().Get("code_challenge"), second.Query().Get("code_challenge"))
}

func TestAuthorize_UsesStoredToken(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("abc")}
	c, ts, _ := newTestCoordinator(t, strat)

	_, err := c.Authorize(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), strat.calls.Load())

	src, err := c.Authorize(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", tok)
	assert.Equal(t, int32(1), strat.calls.Load(), "stored token must not start a new attempt")
	assert.Equal(t, int32(1), ts.exchanges.Load())
}

func TestAuthorize_RefreshesExpiredToken(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("abc")}
	c, ts, st := newTestCoordinator(t, strat)
	ctx := context.Background()

	expired := &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, saveToken(ctx, st, testOrigin, expired, nil))

	src, err := c.Authorize(ctx)
	require.NoError(t, err)

	_, err = src.Token()
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", ts.form()["grant_type"])
	assert.Zero(t, strat.calls.Load())

	// The refreshed token was persisted through OnTokenChange.
	assert.Eventually(t, func() bool {
		rec, loadErr := loadToken(ctx, st, testOrigin)
		return loadErr == nil && rec.Token.AccessToken != "old"
	}, time.Second, 10*time.Millisecond)
}

func TestAuthorize_RevokedRefreshFallsBackToLogin(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("new")}
	c, _, st := newTestCoordinator(t, strat)
	ctx := context.Background()

	revoked := &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, saveToken(ctx, st, testOrigin, revoked, nil))

	src, err := c.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), strat.calls.Load())

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-new", tok)
}

func TestLogin_FailureMessage(t *testing.T) {
	strat := &fakeStrategy{reply: func(Attempt) *Message { return &Message{Storage: ProviderKey} }}
	c, ts, st := newTestCoordinator(t, strat)

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Zero(t, ts.exchanges.Load())

	_, err = loadToken(context.Background(), st, testOrigin)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogin_RejectsBadResults(t *testing.T) {
	tests := []struct {
		name    string
		fields  func(state string) map[string]string
		wantMsg string
	}{
		{
			name:    "state mismatch",
			fields:  func(string) map[string]string { return map[string]string{"state": "other", "code": "c"} },
			wantMsg: "state mismatch",
		},
		{
			name: "provider error",
			fields: func(s string) map[string]string {
				return map[string]string{"state": s, "error": "access_denied", "error_description": "user declined"}
			},
			wantMsg: "access_denied: user declined",
		},
		{
			name:    "missing code",
			fields:  func(s string) map[string]string { return map[string]string{"state": s} },
			wantMsg: "missing authorization code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat := &fakeStrategy{reply: func(att Attempt) *Message {
				return &Message{Fields: tt.fields(att.State)}
			}}
			c, ts, _ := newTestCoordinator(t, strat)

			_, err := c.Login(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuthFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, ts.exchanges.Load())
		})
	}
}

func TestLogin_BeginError(t *testing.T) {
	strat := &fakeStrategy{beginErr: errors.New("no listener")}
	c, _, _ := newTestCoordinator(t, strat)

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no listener")
}

func TestLogin_CanceledWhileWaiting(t *testing.T) {
	strat := &fakeStrategy{}
	c, _, _ := newTestCoordinator(t, strat)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Login(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogout(t *testing.T) {
	strat := &fakeStrategy{reply: codeReply("abc")}
	c, _, st := newTestCoordinator(t, strat)
	ctx := context.Background()

	_, err := c.Login(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, testOrigin, StickyModeKey, "true"))

	require.NoError(t, c.Logout(ctx))

	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = st.Get(ctx, testOrigin, StickyModeKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Logging out twice is fine.
	require.NoError(t, c.Logout(ctx))
}

func TestSession_CorruptToken(t *testing.T) {
	strat := &fakeStrategy{}
	c, _, st := newTestCoordinator(t, strat)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, testOrigin, tokenKey, `{"meta":{}}`))

	_, err := c.Session(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-login required")
}

func TestCoordinator_Mode(t *testing.T) {
	c, _, _ := newTestCoordinator(t, &fakeStrategy{mode: ModeHostHandoff})

	assert.Equal(t, ModeHostHandoff, c.Mode())
}
