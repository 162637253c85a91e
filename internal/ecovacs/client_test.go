package ecovacs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joshp123/deebot-bridge/internal/manager"
)

func newTestClient(t *testing.T, portal http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/user/login") {
			t.Fatalf("unexpected main api path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("account") != "user@example.com" {
			t.Fatalf("missing account param")
		}
		if r.URL.Query().Get("authSign") == "" {
			t.Fatalf("missing request signature")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":"0000","data":{"uid":"uid-1","accessToken":"access-1"}}`)
	}))
	t.Cleanup(main.Close)

	open := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/global/auth/getAuthCode" {
			t.Fatalf("unexpected open api path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("accessToken") != "access-1" {
			t.Fatalf("missing access token")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":"0000","data":{"authCode":"code-1"}}`)
	}))
	t.Cleanup(open.Close)

	portalSrv := httptest.NewServer(portal)
	t.Cleanup(portalSrv.Close)

	client, err := NewClient(Config{
		Email:     "user@example.com",
		Password:  "hunter2",
		Country:   "US",
		Continent: "NA",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.api.mainURL = main.URL
	client.api.openURL = open.URL
	client.api.portalURL = portalSrv.URL

	return client, portalSrv
}

func portalHandler(t *testing.T, commandResponse string, gotCommands *[]map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad portal request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/users/user.do":
			switch req["todo"] {
			case "loginByItToken":
				if req["token"] != "code-1" {
					t.Fatalf("expected auth code in portal login, got %v", req["token"])
				}
				_, _ = io.WriteString(w, `{"result":"ok","userId":"portal-user","token":"portal-token"}`)
			case "GetDeviceList":
				auth, _ := req["auth"].(map[string]any)
				if auth["token"] != "portal-token" {
					t.Fatalf("expected portal token in auth, got %v", auth["token"])
				}
				_, _ = io.WriteString(w, `{"result":"ok","devices":[
					{"did":"E0001","name":"E0001_name","nick":"Upstairs","class":"yna5xi","resource":"atom","company":"eco-ng","deviceName":"DEEBOT OZMO 950"},
					{"did":"E0002","name":"E0002_name","nick":"","class":"x5d34r","resource":"atom","company":"eco-ng","deviceName":"DEEBOT T8"}]}`)
			default:
				t.Fatalf("unexpected user.do todo: %v", req["todo"])
			}
		case "/iot/devmanager.do":
			if gotCommands != nil {
				*gotCommands = append(*gotCommands, req)
			}
			_, _ = io.WriteString(w, commandResponse)
		default:
			t.Fatalf("unexpected portal path: %s", r.URL.Path)
		}
	}
}

func TestAuthenticateAndDiscover(t *testing.T) {
	client, _ := newTestClient(t, portalHandler(t, `{"ret":"ok"}`, nil))
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	devices, err := client.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].ID != "E0001" || devices[0].Name != "Upstairs" || devices[0].Model != "DEEBOT OZMO 950" {
		t.Fatalf("unexpected device: %+v", devices[0])
	}
	// Nick falls back to the portal name when empty.
	if devices[1].Name != "E0002_name" {
		t.Fatalf("expected name fallback, got %q", devices[1].Name)
	}
}

func TestAuthenticationRejected(t *testing.T) {
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"code":"1005","msg":"incorrect account or password"}`)
	}))
	defer main.Close()

	client, err := NewClient(Config{Email: "user@example.com", Password: "wrong", Country: "US", Continent: "NA"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.api.mainURL = main.URL

	err = client.Authenticate(context.Background())
	if err == nil {
		t.Fatalf("expected authentication error")
	}
	if !strings.Contains(err.Error(), "incorrect account or password") {
		t.Fatalf("expected vendor message passed through, got: %v", err)
	}
}

func TestSendCommandPayloads(t *testing.T) {
	var commands []map[string]any
	client, _ := newTestClient(t, portalHandler(t, `{"ret":"ok"}`, &commands))
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := client.Devices(ctx); err != nil {
		t.Fatalf("Devices: %v", err)
	}

	cases := []struct {
		command manager.Command
		cmdName string
		act     string
	}{
		{manager.CommandStart, "clean", "start"},
		{manager.CommandStop, "clean", "stop"},
		{manager.CommandPause, "clean", "pause"},
		{manager.CommandDock, "charge", "go"},
		{manager.CommandLocate, "playSound", ""},
	}

	for _, tc := range cases {
		if err := client.SendCommand(ctx, "E0001", tc.command); err != nil {
			t.Fatalf("SendCommand %s: %v", tc.command, err)
		}
	}
	if len(commands) != len(cases) {
		t.Fatalf("expected %d commands, got %d", len(cases), len(commands))
	}

	for i, tc := range cases {
		req := commands[i]
		if req["cmdName"] != tc.cmdName {
			t.Fatalf("%s: expected cmdName %s, got %v", tc.command, tc.cmdName, req["cmdName"])
		}
		if req["toId"] != "E0001" || req["payloadType"] != "j" || req["td"] != "q" {
			t.Fatalf("%s: unexpected envelope: %v", tc.command, req)
		}
		if tc.act != "" {
			payload, _ := req["payload"].(map[string]any)
			body, _ := payload["body"].(map[string]any)
			data, _ := body["data"].(map[string]any)
			if data["act"] != tc.act {
				t.Fatalf("%s: expected act %s, got %v", tc.command, tc.act, data["act"])
			}
		}
	}
}

func TestSendCommandRejected(t *testing.T) {
	client, _ := newTestClient(t, portalHandler(t, `{"ret":"fail","errno":3,"error":"device is offline"}`, nil))
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := client.Devices(ctx); err != nil {
		t.Fatalf("Devices: %v", err)
	}

	err := client.SendCommand(ctx, "E0001", manager.CommandStart)
	if err == nil {
		t.Fatalf("expected command error")
	}
	if !strings.Contains(err.Error(), "device is offline") {
		t.Fatalf("expected vendor message passed through, got: %v", err)
	}
}

func TestSendCommandUnknownDevice(t *testing.T) {
	client, _ := newTestClient(t, portalHandler(t, `{"ret":"ok"}`, nil))
	ctx := context.Background()

	if err := client.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := client.SendCommand(ctx, "missing", manager.CommandStart); err == nil {
		t.Fatalf("expected error for unknown device")
	}
}
