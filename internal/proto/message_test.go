package proto

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/videoconf/internal/core"
)

func TestFromEventCall(t *testing.T) {
	out := FromEvent(&core.Event{
		Kind: core.EventCallIncoming,
		Call: &core.CallEvent{CallID: "c1", CallType: "direct", RoomID: "r1", FromUserID: "alice", CreatedAt: 42},
	})

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"event","event":"call.incoming","data":{"call_id":"c1","call_type":"direct","room_id":"r1","from_user_id":"alice","created_at":42}}`
	if string(raw) != want {
		t.Errorf("unexpected envelope\n got: %s\nwant: %s", raw, want)
	}
}

func TestFromEventError(t *testing.T) {
	out := FromEvent(core.NewError(core.ErrCodeUnauthorized, "invalid token"))
	if out.Type != OutboundTypeError || out.Error == nil || out.Error.Code != "unauthorized" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	if out.Data != nil {
		t.Errorf("error envelope must not carry data")
	}
}
