package ws

// Relay topics. Chat is archived, typing and signaling are ephemeral.
const (
	TopicMessages = "messages"
	TopicTyping   = "typing"

	TopicOffer        = "webrtc-offer"
	TopicAnswer       = "webrtc-answer"
	TopicIceCandidate = "ice-candidate"

	ErrorEvent = "error"
)

// IsSignalTopic reports whether the topic carries a call-signaling
// payload that is relayed verbatim and never archived.
func IsSignalTopic(topic string) bool {
	switch topic {
	case TopicOffer, TopicAnswer, TopicIceCandidate:
		return true
	}
	return false
}
