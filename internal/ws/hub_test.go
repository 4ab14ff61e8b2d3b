package ws

import (
	"context"
	"encoding/json"
	"testing"
)

type presenceRecorder struct {
	disconnects []int64
	reconnects  []int64
}

func (p *presenceRecorder) HandleDisconnect(_ context.Context, _ int, userID int64) error {
	p.disconnects = append(p.disconnects, userID)
	return nil
}

func (p *presenceRecorder) HandleReconnect(_ context.Context, _ int, userID int64) error {
	p.reconnects = append(p.reconnects, userID)
	return nil
}

func testClient(userID int64, game int) *Client {
	return &Client{UserID: userID, GameNumber: game, Send: make(chan []byte, 4)}
}

func TestBroadcastGameReachesTopicOnly(t *testing.T) {
	h := NewHub()
	a := testClient(1, 100)
	b := testClient(2, 100)
	other := testClient(3, 200)
	h.Register(a)
	h.Register(b)
	h.Register(other)

	h.BroadcastGame(100, Message{Type: MsgPhaseChanged})

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.Send:
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m.Type != MsgPhaseChanged {
				t.Fatalf("expected %s, got %s", MsgPhaseChanged, m.Type)
			}
		default:
			t.Fatalf("user=%d got no message", c.UserID)
		}
	}
	select {
	case <-other.Send:
		t.Fatal("client from another game received the message")
	default:
	}
}

func TestUnregisterSecondSocketHoldsPresence(t *testing.T) {
	h := NewHub()
	p := &presenceRecorder{}
	h.SetPresence(p)

	first := testClient(5, 100)
	second := testClient(5, 100)
	h.Register(first)
	h.Register(second)
	if len(p.reconnects) != 2 {
		t.Fatalf("expected 2 reconnect callbacks, got %d", len(p.reconnects))
	}

	h.Unregister(first)
	if len(p.disconnects) != 0 {
		t.Fatalf("second socket still open, disconnect fired: %v", p.disconnects)
	}

	h.Unregister(second)
	if len(p.disconnects) != 1 || p.disconnects[0] != 5 {
		t.Fatalf("expected disconnect for user 5, got %v", p.disconnects)
	}
}

func TestUnregisterUnknownClientNoop(t *testing.T) {
	h := NewHub()
	p := &presenceRecorder{}
	h.SetPresence(p)

	c := testClient(1, 100)
	h.Register(c)
	h.Unregister(c)
	// повторный Unregister после закрытия канала не должен паниковать
	h.Unregister(c)
	if len(p.disconnects) != 1 {
		t.Fatalf("expected single disconnect, got %d", len(p.disconnects))
	}
}
