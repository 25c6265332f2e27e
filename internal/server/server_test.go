package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	boardnet "ClassBoard/internal/net"
	"ClassBoard/internal/persist"
	"ClassBoard/internal/persist/persisttest"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/server"
	"ClassBoard/internal/state"
	"ClassBoard/internal/whiteboard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T) (*server.Server, *httptest.Server, *persist.Client) {
	t.Helper()
	s := server.New(server.Options{History: 3, Log: zerolog.Nop()})
	hs := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Feed().Close()
		hs.Close()
	})
	return s, hs, persist.NewClient(hs.URL, 2*time.Second, zerolog.Nop())
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestEmptySessionReturnsEmptyList(t *testing.T) {
	_, hs, c := start(t)
	resp, body := get(t, hs.URL+"/whiteboard?session_id=nope")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)

	_, err := c.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, persist.ErrNoSnapshot)
}

func TestMissingSessionIsRejected(t *testing.T) {
	_, hs, _ := start(t)
	resp, _ := get(t, hs.URL+"/whiteboard")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(hs.URL+"/whiteboard", "application/json", strings.NewReader(`{"imageData":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveInvalidatesCachedRead(t *testing.T) {
	_, hs, c := start(t)
	ctx := context.Background()
	list := []state.Annotation{{ID: "a", Text: "one", Width: 10, Height: 10, Style: state.DefaultStyle()}}

	require.NoError(t, c.Save(ctx, persist.NewSaveRequest("s", nil, 4, 4, list, persist.Actor{}, time.Now())))
	resp, _ := get(t, hs.URL+"/whiteboard?session_id=s")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp, _ = get(t, hs.URL+"/whiteboard?session_id=s")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	list[0].Text = "two"
	require.NoError(t, c.Save(ctx, persist.NewSaveRequest("s", nil, 4, 4, list, persist.Actor{}, time.Now())))
	resp, body := get(t, hs.URL+"/whiteboard?session_id=s")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	var records []persist.Record
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	require.Len(t, records, 2)
	snap := records[0].Decode()
	assert.Equal(t, "two", snap.Annotations[0].Text, "newest first")

	require.NoError(t, c.InvalidateCache(ctx, "s"))
	resp, _ = get(t, hs.URL+"/whiteboard?session_id=s")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
}

func TestHistoryIsBounded(t *testing.T) {
	_, hs, c := start(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Save(context.Background(), persist.SaveRequest{SessionID: "h"}))
	}
	_, body := get(t, hs.URL+"/whiteboard?session_id=h")
	var records []persist.Record
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	assert.Len(t, records, 3)
}

func TestFeedReportsActivity(t *testing.T) {
	s, hs, c := start(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan boardnet.Event, 8)
	go func() { _ = boardnet.Watch(ctx, hs.URL, "f", func(ev boardnet.Event) { events <- ev }) }()
	require.Eventually(t, func() bool { return s.Feed().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Save(ctx, persist.SaveRequest{SessionID: "f", Metadata: persist.Metadata{ActorName: "Sam"}}))
	require.NoError(t, c.InvalidateCache(ctx, "f"))

	var got []boardnet.EventType
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
			if ev.Type == boardnet.EventSaved {
				assert.Equal(t, "Sam", ev.Actor)
			}
		case <-ctx.Done():
			t.Fatalf("only saw %v", got)
		}
	}
	assert.Equal(t, []boardnet.EventType{boardnet.EventSaved, boardnet.EventInvalidated}, got)
}

func TestEngineRoundTripOverHTTP(t *testing.T) {
	_, _, c := start(t)
	newEngine := func() *whiteboard.Engine {
		e := whiteboard.New(whiteboard.Options{
			SessionID: "lesson",
			Actor:     persist.Actor{Role: "tutor", Name: "Sam"},
			Clock:     persisttest.NewClock(),
			Persister: c,
			Log:       zerolog.Nop(),
		})
		e.Dispatch(whiteboard.Resize{Width: 320, Height: 200, PixelRatio: 1})
		e.Wait()
		return e
	}

	a := newEngine()
	a.Dispatch(whiteboard.BeginStroke{At: state.Point{X: 10, Y: 100}})
	a.Dispatch(whiteboard.EndStroke{At: state.Point{X: 300, Y: 100}})
	a.Dispatch(whiteboard.SetTool{Tool: raster.ToolText})
	a.Dispatch(whiteboard.BeginStroke{At: state.Point{X: 20, Y: 20}})
	ed, ok := a.Editing()
	require.True(t, ok)
	a.Dispatch(whiteboard.EditText{ID: ed.ID, Text: "over the wire"})
	a.Dispatch(whiteboard.CommitEdit{})
	require.NoError(t, a.Save(context.Background()))

	b := newEngine()
	got := b.Annotations()
	require.Len(t, got, 1)
	want, _ := a.Annotation(ed.ID)
	assert.Equal(t, want.Stripped(), got[0])

	frame := b.Frame()
	assert.Equal(t, uint8(0), frame.RGBAAt(150, 100).R, "stroke restored from the image")
}
