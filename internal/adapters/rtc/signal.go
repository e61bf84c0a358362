package rtc

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// SignalKind names the negotiation step a relayed payload carries. The relay
// never rewrites payloads; the kind is only used for logging.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
	SignalRollback  SignalKind = "rollback"
	SignalUnknown   SignalKind = "unknown"
)

// ClassifySignal recognizes session descriptions ({type, sdp}) and ICE
// candidates, either bare or wrapped as {"candidate": {...}}.
func ClassifySignal(raw json.RawMessage) SignalKind {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err == nil {
		switch sd.Type {
		case webrtc.SDPTypeOffer:
			return SignalOffer
		case webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer:
			return SignalAnswer
		case webrtc.SDPTypeRollback:
			return SignalRollback
		}
	}

	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &ci); err == nil && ci.Candidate != "" {
		return SignalCandidate
	}

	var wrapped struct {
		Candidate *webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Candidate != nil && wrapped.Candidate.Candidate != "" {
		return SignalCandidate
	}
	return SignalUnknown
}
