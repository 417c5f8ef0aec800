package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.True(t, ShouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.True(t, ShouldRetry(fmt.Errorf("post: %w", timeoutErr{})))
	assert.False(t, ShouldRetry(errors.New("telegram: Bad Request: message is not modified (400)")))
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{&net.DNSError{Err: "no such host"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{timeoutErr{}, "timeout"},
		{errors.New("Forbidden: bot was blocked by the user (403)"), "http_4xx"},
		{&tele.Error{Code: 502, Description: "Bad Gateway"}, "http_5xx"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), tc.err.Error())
	}
	assert.Equal(t, "", Kind(nil))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 403, StatusCode(errors.New("Forbidden (403)")))
	assert.Equal(t, 0, StatusCode(errors.New("(oops)")))
	assert.Equal(t, 0, StatusCode(errors.New("no code")))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), time.Millisecond, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour, 1), context.Canceled)
}
