package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginPopup(t *testing.T, inbox *Inbox, state string) (string, string) {
	t.Helper()

	var opened string

	popup := NewDirectPopup(inbox, func(u string) error {
		opened = u
		return nil
	}, nil)
	assert.Equal(t, ModeDirectPopup, popup.Mode())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	redirectURL, err := popup.Begin(ctx, Attempt{
		State:   state,
		AuthURL: func(r string) string { return "https://login.example/authorize?redirect_uri=" + r },
	})
	require.NoError(t, err)

	return redirectURL, opened
}

func TestDirectPopup_PostsCallbackFields(t *testing.T) {
	inbox := NewInbox(nil)
	waiter := inbox.Expect("s1")
	defer waiter.Close()

	redirectURL, opened := beginPopup(t, inbox, "s1")

	assert.True(t, strings.HasPrefix(redirectURL, "http://localhost:"))
	assert.Equal(t, "https://login.example/authorize?redirect_uri="+redirectURL, opened)

	resp, err := http.Get(redirectURL + "/?code=abc&state=s1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := waiter.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"code": "abc", "state": "s1"}, msg.Fields)
	assert.False(t, msg.Failed())
}

func TestDirectPopup_EmptyCallbackRejected(t *testing.T) {
	inbox := NewInbox(nil)
	waiter := inbox.Expect("s2")
	defer waiter.Close()

	redirectURL, _ := beginPopup(t, inbox, "s2")

	resp, err := http.Get(redirectURL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = waiter.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectPopup_BrowserFailureStillListens(t *testing.T) {
	inbox := NewInbox(nil)
	waiter := inbox.Expect("s3")
	defer waiter.Close()

	popup := NewDirectPopup(inbox, func(string) error { return errors.New("no display") }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redirectURL, err := popup.Begin(ctx, Attempt{State: "s3", AuthURL: func(r string) string { return r }})
	require.NoError(t, err)

	resp, err := http.Get(redirectURL + "/?error=access_denied")
	require.NoError(t, err)
	resp.Body.Close()

	msg, err := waiter.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access_denied", msg.Fields["error"])
}

func TestDirectPopup_ShutsDownOnCancel(t *testing.T) {
	inbox := NewInbox(nil)
	popup := NewDirectPopup(inbox, func(string) error { return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())

	redirectURL, err := popup.Begin(ctx, Attempt{State: "s4", AuthURL: func(r string) string { return r }})
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool {
		resp, getErr := http.Get(redirectURL + "/?code=x")
		if getErr != nil {
			return true
		}

		resp.Body.Close()

		return false
	}, 2*time.Second, 20*time.Millisecond)
}
