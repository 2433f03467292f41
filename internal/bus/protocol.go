package bus

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// Protocol payload discriminants. Every payload is a JSON object carrying
// a "type" field with one of these values and a correlatable "request_id".
const (
	TypeShutdownRequest      = "shutdown_request"
	TypeShutdownResponse     = "shutdown_response"
	TypeJoinRequest          = "join_request"
	TypeJoinApproved         = "join_approved"
	TypeJoinRejected         = "join_rejected"
	TypePlanApprovalRequest  = "plan_approval_request"
	TypePlanApprovalResponse = "plan_approval_response"
)

// ProtocolPayload is the closed set of structured handshake messages that
// travel embedded in free-form message text. Use ParseProtocolPayload to
// recover the concrete type from text, or the per-type parsers when the
// expected type is known.
type ProtocolPayload interface {
	PayloadType() string
}

// ShutdownRequest asks an agent to stop working and exit cleanly.
type ShutdownRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	Reason    string `json:"reason,omitempty"`
}

// ShutdownResponse acknowledges (or refuses) a shutdown request.
type ShutdownResponse struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason,omitempty"`
}

// JoinRequest asks the team lead to admit a new agent to the team.
type JoinRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	AgentName string `json:"agent_name"`
	AgentType string `json:"agent_type,omitempty"`
}

// JoinApproved admits the requesting agent to the named team.
type JoinApproved struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	TeamName  string `json:"team_name"`
}

// JoinRejected refuses a join request.
type JoinRejected struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// PlanApprovalRequest submits a plan for the team lead's review.
type PlanApprovalRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	Plan      string `json:"plan"`
}

// PlanApprovalResponse approves or rejects a submitted plan.
type PlanApprovalResponse struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback,omitempty"`
}

func (r ShutdownRequest) PayloadType() string      { return TypeShutdownRequest }
func (r ShutdownResponse) PayloadType() string     { return TypeShutdownResponse }
func (r JoinRequest) PayloadType() string          { return TypeJoinRequest }
func (r JoinApproved) PayloadType() string         { return TypeJoinApproved }
func (r JoinRejected) PayloadType() string         { return TypeJoinRejected }
func (r PlanApprovalRequest) PayloadType() string  { return TypePlanApprovalRequest }
func (r PlanApprovalResponse) PayloadType() string { return TypePlanApprovalResponse }

// NewShutdownRequest builds a shutdown request with a fresh request ID.
func NewShutdownRequest(from, reason string) ShutdownRequest {
	return ShutdownRequest{
		Type:      TypeShutdownRequest,
		RequestID: newRequestID("shutdown"),
		From:      from,
		Reason:    reason,
	}
}

// NewShutdownResponse builds a response correlated to a shutdown request.
func NewShutdownResponse(requestID, from string, approved bool, reason string) ShutdownResponse {
	return ShutdownResponse{
		Type:      TypeShutdownResponse,
		RequestID: requestID,
		From:      from,
		Approved:  approved,
		Reason:    reason,
	}
}

// NewJoinRequest builds a join request with a fresh request ID.
func NewJoinRequest(agentName, agentType string) JoinRequest {
	return JoinRequest{
		Type:      TypeJoinRequest,
		RequestID: newRequestID("join"),
		AgentName: agentName,
		AgentType: agentType,
	}
}

// NewJoinApproved builds an approval correlated to a join request.
func NewJoinApproved(requestID, teamName string) JoinApproved {
	return JoinApproved{Type: TypeJoinApproved, RequestID: requestID, TeamName: teamName}
}

// NewJoinRejected builds a rejection correlated to a join request.
func NewJoinRejected(requestID, reason string) JoinRejected {
	return JoinRejected{Type: TypeJoinRejected, RequestID: requestID, Reason: reason}
}

// NewPlanApprovalRequest builds a plan approval request with a fresh
// request ID.
func NewPlanApprovalRequest(from, plan string) PlanApprovalRequest {
	return PlanApprovalRequest{
		Type:      TypePlanApprovalRequest,
		RequestID: newRequestID("plan"),
		From:      from,
		Plan:      plan,
	}
}

// NewPlanApprovalResponse builds a response correlated to a plan approval
// request.
func NewPlanApprovalResponse(requestID, from string, approved bool, feedback string) PlanApprovalResponse {
	return PlanApprovalResponse{
		Type:      TypePlanApprovalResponse,
		RequestID: requestID,
		From:      from,
		Approved:  approved,
		Feedback:  feedback,
	}
}

// Encode serializes a payload for embedding in message text.
func Encode(p ProtocolPayload) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseShutdownRequest extracts a shutdown request embedded in text.
// Returns nil when text carries no such payload.
func ParseShutdownRequest(text string) *ShutdownRequest {
	var req ShutdownRequest
	if !parsePayload(text, TypeShutdownRequest, &req) {
		return nil
	}
	return &req
}

// ParseShutdownResponse extracts a shutdown response embedded in text.
func ParseShutdownResponse(text string) *ShutdownResponse {
	var resp ShutdownResponse
	if !parsePayload(text, TypeShutdownResponse, &resp) {
		return nil
	}
	return &resp
}

// ParseJoinRequest extracts a join request embedded in text.
func ParseJoinRequest(text string) *JoinRequest {
	var req JoinRequest
	if !parsePayload(text, TypeJoinRequest, &req) {
		return nil
	}
	return &req
}

// ParseJoinApproved extracts a join approval embedded in text.
func ParseJoinApproved(text string) *JoinApproved {
	var resp JoinApproved
	if !parsePayload(text, TypeJoinApproved, &resp) {
		return nil
	}
	return &resp
}

// ParseJoinRejected extracts a join rejection embedded in text.
func ParseJoinRejected(text string) *JoinRejected {
	var resp JoinRejected
	if !parsePayload(text, TypeJoinRejected, &resp) {
		return nil
	}
	return &resp
}

// ParsePlanApprovalRequest extracts a plan approval request embedded in
// text.
func ParsePlanApprovalRequest(text string) *PlanApprovalRequest {
	var req PlanApprovalRequest
	if !parsePayload(text, TypePlanApprovalRequest, &req) {
		return nil
	}
	return &req
}

// ParsePlanApprovalResponse extracts a plan approval response embedded in
// text.
func ParsePlanApprovalResponse(text string) *PlanApprovalResponse {
	var resp PlanApprovalResponse
	if !parsePayload(text, TypePlanApprovalResponse, &resp) {
		return nil
	}
	return &resp
}

// ParseProtocolPayload extracts the first recognizable protocol payload
// from text, whatever its type. Returns nil when text carries none.
func ParseProtocolPayload(text string) ProtocolPayload {
	for _, candidate := range jsonObjects(text) {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
			continue
		}
		var target ProtocolPayload
		switch probe.Type {
		case TypeShutdownRequest:
			target = &ShutdownRequest{}
		case TypeShutdownResponse:
			target = &ShutdownResponse{}
		case TypeJoinRequest:
			target = &JoinRequest{}
		case TypeJoinApproved:
			target = &JoinApproved{}
		case TypeJoinRejected:
			target = &JoinRejected{}
		case TypePlanApprovalRequest:
			target = &PlanApprovalRequest{}
		case TypePlanApprovalResponse:
			target = &PlanApprovalResponse{}
		default:
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err != nil {
			continue
		}
		return target
	}
	return nil
}

// parsePayload scans text for a JSON object whose "type" field matches
// want and unmarshals it into v. Returns false on any mismatch or parse
// failure; parsers never fail loudly on arbitrary text.
func parsePayload(text, want string, v any) bool {
	for _, candidate := range jsonObjects(text) {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
			continue
		}
		if probe.Type != want {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err != nil {
			continue
		}
		return true
	}
	return false
}

// jsonObjects returns every balanced top-level {...} substring of text,
// in order of appearance. The scanner is string-aware so braces inside
// JSON string values do not confuse the depth count.
func jsonObjects(text string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// newRequestID produces a correlatable request ID of the form
// <prefix>-<base36 millisecond timestamp>-<random base36 suffix>.
func newRequestID(prefix string) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36Digits[rand.IntN(len(base36Digits))]
	}
	return fmt.Sprintf("%s-%s-%s",
		prefix,
		strconv.FormatInt(time.Now().UnixMilli(), 36),
		string(suffix))
}
