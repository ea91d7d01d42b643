package observability

import "time"

// WSRoutingKey is the routing key for room websocket lifecycle events.
const WSRoutingKey = "ws_events.rooms"

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSLifecycleEvent builds the envelope for a ws_connect/ws_disconnect/ws_error
// event on a room connection.
func WSLifecycleEvent(event, connID string, duration time.Duration, reason string, userID int, role, ip string) EventEnvelope {
	return EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     connID,
				"duration_ms": duration.Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id": userID,
				"role":    role,
				"ip":      ip,
			},
		},
	}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
