package rtc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySignal(t *testing.T) {
	cases := []struct {
		raw  string
		want SignalKind
	}{
		{`{"type":"offer","sdp":"v=0\r\n"}`, SignalOffer},
		{`{"type":"answer","sdp":"v=0\r\n"}`, SignalAnswer},
		{`{"type":"rollback"}`, SignalRollback},
		{`{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host","sdpMid":"0"}`, SignalCandidate},
		{`{"candidate":{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host","sdpMLineIndex":0}}`, SignalCandidate},
		{`{"hello":"world"}`, SignalUnknown},
		{`"just a string"`, SignalUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifySignal(json.RawMessage(tc.raw)), tc.raw)
	}
}

func TestConfiguration(t *testing.T) {
	assert.Equal(t, DefaultWebRTCConfig(), Configuration(nil))
	assert.Equal(t, []string{PublicSTUN}, DefaultWebRTCConfig().ICEServers[0].URLs)
	assert.Equal(t, DefaultWebRTCConfig(), Configuration([]ICEServer{{Username: "nobody"}}))

	cfg := Configuration([]ICEServer{
		{URLs: []string{"turn:turn.example.com:3478"}, Username: "relay", Credential: "secret"},
	})
	if assert.Len(t, cfg.ICEServers, 1) {
		assert.Equal(t, []string{"turn:turn.example.com:3478"}, cfg.ICEServers[0].URLs)
		assert.Equal(t, "relay", cfg.ICEServers[0].Username)
		assert.Equal(t, "secret", cfg.ICEServers[0].Credential)
	}
}
