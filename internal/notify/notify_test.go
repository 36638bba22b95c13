package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSend(t *testing.T) {
	var (
		mu   sync.Mutex
		got  Notification
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"data":{"status":"ok","id":"abc"}}`))
	}))
	defer srv.Close()

	d := New(Config{Endpoint: srv.URL, AccessToken: "tok"}, nil)
	n := Notification{
		To:    "ExponentPushToken[xyz]",
		Title: "New task assigned",
		Body:  "Buy milk",
		Data:  map[string]any{"task_id": "t1"},
	}
	if err := d.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.To != n.To || got.Title != n.Title || got.Body != n.Body || got.Data["task_id"] != "t1" {
		t.Errorf("server received %+v", got)
	}
	if got.Sound != "default" {
		t.Errorf("sound = %q, want default", got.Sound)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusBadGateway, "upstream down", "returned 502"},
		{"ticket error", http.StatusOK, `{"data":{"status":"error","message":"DeviceNotRegistered"}}`, "DeviceNotRegistered"},
		{"request error", http.StatusOK, `{"errors":[{"code":"VALIDATION_ERROR","message":"bad token"}]}`, "bad token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(Config{Endpoint: srv.URL}, nil).Send(context.Background(), Notification{To: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Send() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	d := New(Config{}, nil)
	if d.Enabled() {
		t.Fatal("dispatcher without endpoint should be disabled")
	}
	if err := d.Send(context.Background(), Notification{To: "x"}); err != nil {
		t.Errorf("disabled Send() = %v", err)
	}
	d.Go(Notification{To: "x"})
	d.Wait()
}

func TestGoLogsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	d := New(Config{Endpoint: srv.URL, Timeout: time.Second}, logger)
	d.Go(Notification{To: "ExponentPushToken[1]", Title: "t"})
	d.Wait()

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected a warning, got %v", entry)
	}
	if entry.Data["to"] != "ExponentPushToken[1]" {
		t.Errorf("to field = %v", entry.Data["to"])
	}
}
