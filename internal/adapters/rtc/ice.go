package rtc

import (
	"github.com/pion/webrtc/v4"
)

// ICEServer is the configured form of one STUN/TURN server.
type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// PublicSTUN is handed to clients when no ICE server is configured.
const PublicSTUN = "stun:stun.l.google.com:19302"

// DefaultWebRTCConfig is the STUN-only fallback. Peers behind symmetric NAT
// need a TURN entry in ice_servers.
func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{PublicSTUN}}},
	}
}

// Configuration builds the peer configuration handed to call clients. Servers
// without URLs are skipped; with none left the public STUN default applies.
func Configuration(servers []ICEServer) webrtc.Configuration {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		is := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			is.Credential = s.Credential
		}
		out = append(out, is)
	}
	if len(out) == 0 {
		return DefaultWebRTCConfig()
	}
	return webrtc.Configuration{ICEServers: out}
}
