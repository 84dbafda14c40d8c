package signal

import (
	"encoding/json"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

// Requests carry a correlation id; acks echo it. Server-initiated pushes
// carry no id and expect no acknowledgement.
const (
	eventJoinRoom         = "joinRoom"
	eventRequestTransport = "requestTransport"
	eventConnectTransport = "connectTransport"
	eventStartProducing   = "startProducing"
	eventAudioChange      = "audioChange"
	eventConsumeMedia     = "consumeMedia"
	eventUnpauseConsumer  = "unpauseConsumer"
	eventAck              = "ack"
	eventNewProducers     = "newProducersToConsume"
	eventClientGone       = "clientDisconnected"
)

type envelope struct {
	Type string          `json:"type"`
	ID   *uint64         `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type ackEnvelope struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type joinRoomRequest struct {
	UserName string `json:"userName"`
	RoomName string `json:"roomName"`
}

type joinRoomAck struct {
	RouterRtpCapabilities media.RtpCapabilities `json:"routerRtpCapabilities"`
	NewRoom               bool                  `json:"newRoom"`
	AudioPidsToCreate     []string              `json:"audioPidsToCreate"`
	VideoPidsToCreate     []string              `json:"videoPidsToCreate"`
	AssociatedUserNames   []string              `json:"associatedUserNames"`
}

type requestTransportRequest struct {
	Type     string `json:"type"`
	AudioPid string `json:"audioPid,omitempty"`
}

type connectTransportRequest struct {
	DtlsParameters media.DtlsParameters `json:"dtlsParameters"`
	Type           string               `json:"type"`
	AudioPid       string               `json:"audioPid,omitempty"`
}

type startProducingRequest struct {
	Kind          string              `json:"kind"`
	RtpParameters media.RtpParameters `json:"rtpParameters"`
}

type startProducingAck struct {
	ID string `json:"id"`
}

type consumeMediaRequest struct {
	RtpCapabilities media.RtpCapabilities `json:"rtpCapabilities"`
	ProducerID      string                `json:"producerId"`
	Kind            string                `json:"kind"`
}

type consumerParamsAck struct {
	ProducerID    string              `json:"producerId"`
	ID            string              `json:"id"`
	Kind          string              `json:"kind"`
	RtpParameters media.RtpParameters `json:"rtpParameters"`
}

type unpauseConsumerRequest struct {
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind"`
}

type newProducersPush struct {
	RouterRtpCapabilities media.RtpCapabilities `json:"routerRtpCapabilities"`
	AudioPidsToCreate     []string              `json:"audioPidsToCreate"`
	VideoPidsToCreate     []string              `json:"videoPidsToCreate"`
	AssociatedUserNames   []string              `json:"associatedUserNames"`
	ActiveSpeakerList     []string              `json:"activeSpeakerList"`
}

type clientDisconnectedPush struct {
	ProducerID string `json:"producerId"`
}
