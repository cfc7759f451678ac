package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diogo/promptin/internal/api"
	"github.com/diogo/promptin/internal/chat"
	apierrors "github.com/diogo/promptin/internal/errors"
)

func newTestServer(t *testing.T, gw api.CompletionGateway) (*httptest.Server, *chat.Controller) {
	t.Helper()
	ctrl := chat.New(gw)
	srv := httptest.NewServer(NewHandler(ctrl, nil).Router())
	t.Cleanup(srv.Close)
	return srv, ctrl
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, api.NewMockGateway("x"))
	if resp := get(t, srv.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}
}

func TestSend_Success(t *testing.T) {
	gw := api.NewMockGateway("Hello")
	srv, _ := newTestServer(t, gw)

	if resp := post(t, srv.URL+"/api/prompt", `{"prompt":"Be terse."}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/prompt = %d", resp.StatusCode)
	}

	resp := post(t, srv.URL+"/api/send", `{"text":"Hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/send = %d", resp.StatusCode)
	}
	got := decodeBody(t, resp)
	reply, _ := got["reply"].(map[string]interface{})
	if reply["speaker"] != "Assistant" || reply["content"] != "Hello" {
		t.Errorf("reply = %v", got)
	}
	if got["turns"] != float64(2) {
		t.Errorf("turns = %v", got["turns"])
	}

	snap, _ := gw.LastSnapshot()
	if snap.SystemPrompt != "Be terse." || snap.Input != "Hi" {
		t.Errorf("snapshot = %+v", snap)
	}

	// prompt is locked after the first reply
	if resp := post(t, srv.URL+"/api/prompt", `{"prompt":"other"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("POST /api/prompt after reply = %d, want 409", resp.StatusCode)
	}
}

func TestSend_BadBody(t *testing.T) {
	srv, _ := newTestServer(t, api.NewMockGateway("x"))

	for _, body := range []string{`not json`, `{}`} {
		if resp := post(t, srv.URL+"/api/send", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST /api/send %s = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestSend_Failure(t *testing.T) {
	gw := &api.MockGateway{Err: apierrors.NewAPIError(500, "http://x", "boom")}
	srv, ctrl := newTestServer(t, gw)

	resp := post(t, srv.URL+"/api/send", `{"text":"Hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("POST /api/send = %d, want 502", resp.StatusCode)
	}
	if !ctrl.Conversation().Dangling() {
		t.Error("user turn not kept after failure")
	}

	state := decodeBody(t, get(t, srv.URL+"/api/state"))
	if state["dangling"] != true || state["pending"] != false || state["last_error"] == nil {
		t.Errorf("state = %v", state)
	}
}

func TestSend_Timeout(t *testing.T) {
	gw := &api.MockGateway{Err: apierrors.NewTimeoutError("slow")}
	srv, _ := newTestServer(t, gw)

	if resp := post(t, srv.URL+"/api/send", `{"text":"Hi"}`); resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("POST /api/send = %d, want 504", resp.StatusCode)
	}
}

func TestSend_BusyAndStale(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &api.MockGateway{
		Func: func(ctx context.Context, _ api.Snapshot) (*string, error) {
			close(started)
			select {
			case <-release:
				s := "late"
				return &s, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	srv, ctrl := newTestServer(t, gw)

	first := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/api/send", "application/json", strings.NewReader(`{"text":"slow"}`))
		if err != nil {
			first <- nil
			return
		}
		first <- resp
	}()
	<-started

	if resp := post(t, srv.URL+"/api/send", `{"text":"second"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("concurrent send = %d, want 409", resp.StatusCode)
	}

	if resp := post(t, srv.URL+"/api/clear", ``); resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/clear = %d", resp.StatusCode)
	}
	close(release)

	resp := <-first
	if resp == nil {
		t.Fatal("first request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("in-flight send after clear = %d, want 409", resp.StatusCode)
	}
	if got := decodeBody(t, resp); got["error"] != "conversation was reset" {
		t.Errorf("error = %v", got["error"])
	}
	if ctrl.Conversation().Len() != 0 {
		t.Errorf("stale reply appended: %q", ctrl.Export())
	}
}

func TestTranscriptAndExport(t *testing.T) {
	srv, ctrl := newTestServer(t, api.NewMockGateway("Hello"))
	ctrl.Send(context.Background(), "Hi")

	resp := get(t, srv.URL+"/api/transcript")
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "USER: Hi\nAssistant: Hello\n" {
		t.Errorf("transcript = %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain;charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp = get(t, srv.URL+"/api/export")
	body, _ = io.ReadAll(resp.Body)
	if string(body) != "USER: Hi\nAssistant: Hello\n" {
		t.Errorf("export = %q", body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="chat.txt"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain;charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp = get(t, srv.URL+"/api/export?format=json")
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="chat.json"` {
		t.Errorf("json Content-Disposition = %q", cd)
	}

	if resp := get(t, srv.URL+"/api/export?format=pdf"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", resp.StatusCode)
	}
}

func TestClear(t *testing.T) {
	srv, ctrl := newTestServer(t, api.NewMockGateway("Hello"))
	ctrl.Send(context.Background(), "Hi")

	state := decodeBody(t, post(t, srv.URL+"/api/clear", ``))
	turns, _ := state["turns"].([]interface{})
	if len(turns) != 0 || state["generation"] != float64(1) || state["frozen"] != false {
		t.Errorf("state after clear = %v", state)
	}
}
