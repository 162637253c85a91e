package ecovacs

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/joshp123/deebot-bridge/internal/manager"
)

// Push topics look like iot/atr/{event}/{did}/{class}/{resource}/{format}.
// Event names may carry a version suffix (onCleanInfo_V2).
func topicEventName(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != "iot" || parts[1] != "atr" {
		return "", false
	}
	name := parts[2]
	if i := strings.Index(name, "_V"); i > 0 {
		name = name[:i]
	}
	return name, true
}

type pushPayload struct {
	Body struct {
		Data json.RawMessage `json:"data"`
	} `json:"body"`
}

// decodeEvent turns a raw push message into a normalized event.
// Unrecognized event names and malformed payloads are dropped.
func decodeEvent(deviceID, topic string, payload []byte) (manager.Event, bool) {
	name, ok := topicEventName(topic)
	if !ok {
		return manager.Event{}, false
	}

	var msg pushPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return manager.Event{}, false
	}

	switch name {
	case "onBattery", "onBatteryInfo":
		var data struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(msg.Body.Data, &data); err != nil {
			return manager.Event{}, false
		}
		return manager.Event{DeviceID: deviceID, Kind: manager.EventBattery, Battery: data.Value}, true

	case "onChargeState":
		var data struct {
			IsCharging int `json:"isCharging"`
		}
		if err := json.Unmarshal(msg.Body.Data, &data); err != nil {
			return manager.Event{}, false
		}
		state := manager.StateIdle
		if data.IsCharging == 1 {
			state = manager.StateCharging
		}
		return manager.Event{DeviceID: deviceID, Kind: manager.EventState, State: state}, true

	case "onCleanInfo":
		var data struct {
			State      string `json:"state"`
			CleanState struct {
				MotionState string `json:"motionState"`
			} `json:"cleanState"`
		}
		if err := json.Unmarshal(msg.Body.Data, &data); err != nil {
			return manager.Event{}, false
		}
		return manager.Event{
			DeviceID: deviceID,
			Kind:     manager.EventState,
			State:    cleanState(data.State, data.CleanState.MotionState),
		}, true

	case "onError":
		code, ok := firstErrorCode(msg.Body.Data)
		if !ok {
			return manager.Event{}, false
		}
		event := manager.Event{DeviceID: deviceID, Kind: manager.EventError}
		if code != 0 {
			event.ErrorCode = strconv.Itoa(code)
			event.ErrorMessage = errorText(code)
		}
		return event, true

	default:
		return manager.Event{}, false
	}
}

// cleanState maps the portal's clean-info vocabulary onto the bridge enum.
func cleanState(state, motionState string) manager.CleanState {
	switch state {
	case "clean":
		switch motionState {
		case "pause":
			return manager.StatePaused
		case "working", "":
			return manager.StateCleaning
		default:
			return manager.StateCleaning
		}
	case "pause":
		return manager.StatePaused
	case "goCharging":
		return manager.StateDocking
	case "idle":
		return manager.StateIdle
	default:
		return manager.StateUnknown
	}
}

// onError payloads carry either {"code": 104} or {"code": [104]}.
func firstErrorCode(data json.RawMessage) (int, bool) {
	var scalar struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(data, &scalar); err == nil {
		return scalar.Code, true
	}
	var list struct {
		Code []int `json:"code"`
	}
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list.Code) == 0 {
			return 0, true
		}
		return list.Code[0], true
	}
	return 0, false
}

var errorTexts = map[int]string{
	101: "battery abnormal",
	102: "battery low",
	103: "host hang",
	104: "wheel abnormal",
	105: "down sensor abnormal",
	106: "bumper abnormal",
	110: "no dust box",
	111: "side brush stuck",
	112: "main brush stuck",
	113: "robot stuck",
	201: "camera error",
	404: "device offline",
}

func errorText(code int) string {
	if text, ok := errorTexts[code]; ok {
		return text
	}
	return "error code " + strconv.Itoa(code)
}
