package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type recordingHandler struct {
	calls   int
	proceed bool
	err     error
	gotChat *api.Chat
	gotUser *api.User
}

func (h *recordingHandler) Handle(_ context.Context, _ *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	h.calls++
	h.gotChat = chat
	h.gotUser = user
	return h.proceed, h.err
}

func TestProcessRejectsNilUpdate(t *testing.T) {
	t.Parallel()

	up := &UpdateProcessor{}
	if err := up.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil update")
	}
}

func TestProcessSkipsStaleUpdates(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{handler}}

	stale := &api.Update{Message: &api.Message{
		Date: int(time.Now().Add(-UpdateTimeout - time.Minute).Unix()),
	}}
	if err := up.Process(context.Background(), stale); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if handler.calls != 0 {
		t.Fatalf("stale update reached handlers: %d calls", handler.calls)
	}
}

func TestProcessResolvesChatAndUser(t *testing.T) {
	t.Parallel()

	first := &recordingHandler{proceed: false}
	second := &recordingHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{first, second}}

	update := &api.Update{Message: &api.Message{
		Date: int(time.Now().Unix()),
		Chat: api.Chat{ID: 10},
		From: &api.User{ID: 7},
	}}
	if err := up.Process(context.Background(), update); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("unexpected handler calls: first=%d second=%d", first.calls, second.calls)
	}
	if first.gotChat == nil || first.gotChat.ID != 10 {
		t.Fatalf("chat not resolved: %#v", first.gotChat)
	}
	if first.gotUser == nil || first.gotUser.ID != 7 {
		t.Fatalf("user not resolved: %#v", first.gotUser)
	}
}

func TestProcessPropagatesHandlerError(t *testing.T) {
	t.Parallel()

	handlerErr := errors.New("handler broke")
	handler := &recordingHandler{err: handlerErr}
	up := &UpdateProcessor{updateHandlers: []Handler{handler}}

	update := &api.Update{Message: &api.Message{Date: int(time.Now().Unix())}}
	if err := up.Process(context.Background(), update); !errors.Is(err, handlerErr) {
		t.Fatalf("got %v want handler error", err)
	}
}

func TestGetUNFallsBackToFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *api.User
		want string
	}{
		{name: "nil user", user: nil, want: ""},
		{name: "username wins", user: &api.User{UserName: "warden", FirstName: "Ward"}, want: "warden"},
		{name: "falls back to names", user: &api.User{FirstName: "Ward", LastName: "En"}, want: "Ward En"},
		{name: "first name only", user: &api.User{FirstName: "Ward"}, want: "Ward"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUN(tt.user); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
