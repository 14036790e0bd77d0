package fleet

import (
	"encoding/json"

	"github.com/fleetstream/fleetbridge/internal/telemetry"
)

// Wire message types.
const (
	msgTypeSubscribeAll = "data:subscribe_all"
	msgTypeHelloPrefix  = "control:hello"
)

// Vehicle availability states as reported by the upstream.
const (
	errVehicleDisconnected = "vehicle_disconnected"
	errVehicleOffline      = "vehicle_offline"
)

// subscribeRequest is the outbound frame that opens a telemetry stream
// for one vehicle.
type subscribeRequest struct {
	MsgType string `json:"msg_type"`
	Tag     string `json:"tag"`
	Token   string `json:"token"`
}

// streamMessage is the inbound frame envelope. Exactly one of Error, a
// control MsgType, or Data is meaningful per frame; unknown shapes are
// ignored.
type streamMessage struct {
	MsgType string       `json:"msg_type"`
	Error   *streamError `json:"error"`
	Data    []fieldEntry `json:"data"`
	VIN     string       `json:"vin"`
}

// streamError describes an upstream error condition for the session's vehicle.
type streamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// fieldEntry is one telemetry field within a data frame.
type fieldEntry struct {
	Key   string             `json:"key"`
	Value telemetry.RawValue `json:"value"`
}

// sensitiveKeys are stripped from frames before debug logging.
var sensitiveKeys = []string{"token", "auth", "api_key"}

// sanitizeFrame renders a raw frame for debug logging with credential
// fields removed. Returns the input unchanged if it is not a JSON object.
func sanitizeFrame(raw []byte) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return string(raw)
	}
	for _, k := range sensitiveKeys {
		delete(m, k)
	}
	out, err := json.Marshal(m)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
