package ecovacs

import (
	"testing"

	"github.com/joshp123/deebot-bridge/internal/manager"
)

func TestDecodeBatteryEvent(t *testing.T) {
	payload := []byte(`{"header":{"pri":1},"body":{"data":{"value":87,"isLow":0}}}`)
	event, ok := decodeEvent("E0001", "iot/atr/onBattery/E0001/yna5xi/atom/j", payload)
	if !ok {
		t.Fatalf("expected event")
	}
	if event.Kind != manager.EventBattery || event.Battery != 87 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDecodeChargeStateEvent(t *testing.T) {
	payload := []byte(`{"body":{"data":{"isCharging":1,"mode":"slot"}}}`)
	event, ok := decodeEvent("E0001", "iot/atr/onChargeState/E0001/yna5xi/atom/j", payload)
	if !ok {
		t.Fatalf("expected event")
	}
	if event.Kind != manager.EventState || event.State != manager.StateCharging {
		t.Fatalf("unexpected event: %+v", event)
	}

	payload = []byte(`{"body":{"data":{"isCharging":0}}}`)
	event, _ = decodeEvent("E0001", "iot/atr/onChargeState/E0001/yna5xi/atom/j", payload)
	if event.State != manager.StateIdle {
		t.Fatalf("expected idle when not charging, got %s", event.State)
	}
}

func TestDecodeCleanInfoEvent(t *testing.T) {
	cases := []struct {
		payload string
		want    manager.CleanState
	}{
		{`{"body":{"data":{"state":"clean","cleanState":{"motionState":"working","type":"auto"}}}}`, manager.StateCleaning},
		{`{"body":{"data":{"state":"clean","cleanState":{"motionState":"pause"}}}}`, manager.StatePaused},
		{`{"body":{"data":{"state":"goCharging"}}}`, manager.StateDocking},
		{`{"body":{"data":{"state":"idle"}}}`, manager.StateIdle},
		{`{"body":{"data":{"state":"someNewState"}}}`, manager.StateUnknown},
	}

	for _, tc := range cases {
		event, ok := decodeEvent("E0001", "iot/atr/onCleanInfo/E0001/yna5xi/atom/j", []byte(tc.payload))
		if !ok {
			t.Fatalf("expected event for %s", tc.payload)
		}
		if event.Kind != manager.EventState || event.State != tc.want {
			t.Fatalf("payload %s: expected %s, got %+v", tc.payload, tc.want, event)
		}
	}
}

func TestDecodeCleanInfoVersionedTopic(t *testing.T) {
	payload := []byte(`{"body":{"data":{"state":"clean","cleanState":{"motionState":"working"}}}}`)
	event, ok := decodeEvent("E0001", "iot/atr/onCleanInfo_V2/E0001/yna5xi/atom/j", payload)
	if !ok || event.State != manager.StateCleaning {
		t.Fatalf("versioned topic not decoded: %+v", event)
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	payload := []byte(`{"body":{"data":{"code":[104]}}}`)
	event, ok := decodeEvent("E0001", "iot/atr/onError/E0001/yna5xi/atom/j", payload)
	if !ok {
		t.Fatalf("expected event")
	}
	if event.Kind != manager.EventError || event.ErrorCode != "104" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.ErrorMessage != "wheel abnormal" {
		t.Fatalf("unexpected message: %s", event.ErrorMessage)
	}

	// Scalar form of the payload.
	payload = []byte(`{"body":{"data":{"code":110}}}`)
	event, ok = decodeEvent("E0001", "iot/atr/onError/E0001/yna5xi/atom/j", payload)
	if !ok || event.ErrorCode != "110" {
		t.Fatalf("scalar code not decoded: %+v", event)
	}

	// Code zero clears the error.
	payload = []byte(`{"body":{"data":{"code":[0]}}}`)
	event, ok = decodeEvent("E0001", "iot/atr/onError/E0001/yna5xi/atom/j", payload)
	if !ok || event.ErrorCode != "" {
		t.Fatalf("expected cleared error, got %+v", event)
	}
}

func TestDecodeIgnoresUnknownAndMalformed(t *testing.T) {
	if _, ok := decodeEvent("E0001", "iot/atr/onFanSpeed/E0001/yna5xi/atom/j", []byte(`{"body":{"data":{"speed":2}}}`)); ok {
		t.Fatalf("unknown event name should be dropped")
	}
	if _, ok := decodeEvent("E0001", "iot/atr/onBattery/E0001/yna5xi/atom/j", []byte(`not-json`)); ok {
		t.Fatalf("malformed payload should be dropped")
	}
	if _, ok := decodeEvent("E0001", "some/other/topic", []byte(`{}`)); ok {
		t.Fatalf("foreign topic should be dropped")
	}
}
