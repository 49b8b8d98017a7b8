package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// drain returns every frame queued for c without blocking
func drain(t *testing.T, c *Client) []Frame {
	t.Helper()
	var frames []Frame
	for {
		select {
		case msg := <-c.Send():
			var f Frame
			require.NoError(t, json.Unmarshal(msg, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func framesNamed(frames []Frame, event string) []Frame {
	var out []Frame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func lastCount(t *testing.T, frames []Frame) int {
	t.Helper()
	counts := framesNamed(frames, EventViewerCount)
	require.NotEmpty(t, counts, "no viewer-count frame")
	var vc ViewerCount
	require.NoError(t, json.Unmarshal(counts[len(counts)-1].Data, &vc))
	return vc.Count
}

func TestHubViewerCounts(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := NewClient("a", 16)
	b := NewClient("b", 16)

	hub.Join(a, "1")
	assert.Equal(t, 1, lastCount(t, drain(t, a)))

	hub.Join(b, "1")
	assert.Equal(t, 2, hub.RoomSize("1"))
	assert.Equal(t, 2, lastCount(t, drain(t, a)))
	assert.Equal(t, 2, lastCount(t, drain(t, b)))

	room, ok := hub.Leave(b)
	require.True(t, ok)
	assert.Equal(t, "1", room)
	assert.Equal(t, 1, lastCount(t, drain(t, a)))
	assert.Empty(t, drain(t, b))

	_, ok = hub.Leave(b)
	assert.False(t, ok)
}

func TestHubSwitchingRoomsLeavesOldOne(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := NewClient("a", 16)
	watcher := NewClient("w", 16)

	hub.Join(watcher, "1")
	hub.Join(a, "1")
	drain(t, watcher)

	hub.Join(a, "2")
	assert.Equal(t, 1, hub.RoomSize("1"))
	assert.Equal(t, 1, hub.RoomSize("2"))
	assert.Equal(t, 1, lastCount(t, drain(t, watcher)))

	room, _ := hub.RoomOf(a)
	assert.Equal(t, "2", room)
}

func TestHubEmitIsScopedToRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := NewClient("a", 16)
	b := NewClient("b", 16)
	hub.Join(a, "1")
	hub.Join(b, "2")
	drain(t, a)
	drain(t, b)

	hub.Emit("1", "chat-message", map[string]string{"content": "hi"})

	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, "chat-message", frames[0].Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(frames[0].Data))
	assert.Empty(t, drain(t, b))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := NewClient("slow", 1)
	fast := NewClient("fast", 16)

	hub.Join(slow, "1") // fills the buffer with viewer-count
	hub.Join(fast, "1")

	assert.Equal(t, 1, hub.RoomSize("1"))
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should be closed")
	}
	assert.Equal(t, 1, lastCount(t, drain(t, fast)))
}

func TestHubEvictUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	phone := NewClient("phone", 16)
	laptop := NewClient("laptop", 16)
	other := NewClient("other", 16)
	phone.SetUser(5, "student")
	laptop.SetUser(5, "student")
	other.SetUser(6, "student")

	for _, c := range []*Client{phone, laptop, other} {
		hub.Join(c, "9")
	}
	assert.Equal(t, 2, hub.UserConnections("9", 5))

	hub.EvictUser("9", 5)
	assert.Equal(t, 1, hub.RoomSize("9"))
	assert.Equal(t, 0, hub.UserConnections("9", 5))
	assert.NotEmpty(t, framesNamed(drain(t, phone), EventLeftClass))

	// evicted sockets stay open
	select {
	case <-phone.Done():
		t.Fatal("evicted client should stay connected")
	default:
	}
}
