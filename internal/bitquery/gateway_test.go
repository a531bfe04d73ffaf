package bitquery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// queryServer runs a one-shot websocket server that answers every query
// with the given raw response.
func queryServer(t *testing.T, response string, onRequest func(r *http.Request, req queryRequest)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req queryRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if onRequest != nil {
			onRequest(r, req)
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(response)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Execute(t *testing.T) {
	var gotAuth string
	var gotQuery queryRequest

	url := queryServer(t, `{"data": {"Solana": {"DEXTrades": []}}}`, func(r *http.Request, req queryRequest) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = req
	})

	client := NewClient(url, "secret-token")
	result, err := client.Execute(context.Background(), "query { x }", map[string]interface{}{"token": "tok-A"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if gotQuery.Query != "query { x }" {
		t.Errorf("unexpected query sent: %q", gotQuery.Query)
	}
	if gotQuery.Variables["token"] != "tok-A" {
		t.Errorf("unexpected variables sent: %v", gotQuery.Variables)
	}
	if result.HasErrors() {
		t.Errorf("unexpected errors: %s", result.ErrorMessage())
	}
	if !strings.Contains(string(result.Data), "DEXTrades") {
		t.Errorf("unexpected data: %s", result.Data)
	}
}

func TestClient_Execute_UpstreamErrors(t *testing.T) {
	url := queryServer(t, `{"errors": [{"message": "account blocked"}, {"message": "retry later"}]}`, nil)

	result, err := NewClient(url, "tok").Execute(context.Background(), "query { x }", nil)
	if err != nil {
		t.Fatalf("error payload must not be a transport error: %v", err)
	}
	if !result.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := result.ErrorMessage(); got != "account blocked; retry later" {
		t.Errorf("unexpected joined message: %q", got)
	}
}

func TestClient_Execute_MalformedResponse(t *testing.T) {
	url := queryServer(t, `{{{not json`, nil)

	result, err := NewClient(url, "tok").Execute(context.Background(), "query { x }", nil)
	if err != nil {
		t.Fatalf("malformed body must not be a transport error: %v", err)
	}
	if !result.HasErrors() {
		t.Fatal("expected an error-carrying result")
	}
}

func TestClient_Execute_DialFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1", "tok")
	_, err := client.Execute(context.Background(), "query { x }", nil)
	if err == nil {
		t.Fatal("expected a dial error")
	}
}

func TestQueryResult_NilHasErrors(t *testing.T) {
	var r *QueryResult
	if !r.HasErrors() {
		t.Error("nil result must count as erroneous")
	}
	if r.ErrorMessage() != "" {
		t.Error("nil result must have an empty message")
	}
}
