// Package media is the capability surface of the media-processing engine.
//
// The orchestration layer never touches ICE, DTLS or RTP itself; it only
// requests routers, transports, producers and consumers from an Engine and
// relays the resulting connection parameters between the engine and the
// browser. Anything that actually moves packets lives behind these
// interfaces (see localengine for the in-process stand-in).
package media

import "time"

// Engine spawns media workers. An implementation wraps one media-processing
// runtime for the whole process.
type Engine interface {
	NewWorker() (Worker, error)
}

// Worker is a media-processing execution context. Rooms are sharded across
// a fixed pool of workers; a worker dying is fatal to the process.
type Worker interface {
	CreateRouter(options RouterOptions) (Router, error)
	// OnDied registers a handler invoked if the worker terminates
	// unexpectedly. Close does not trigger it.
	OnDied(handler func(error))
	Close()
	Closed() bool
}

// Router forwards streams between the transports created on it. One router
// per room.
type Router interface {
	ID() string
	RtpCapabilities() RtpCapabilities
	CreateWebRtcTransport(options WebRtcTransportOptions) (Transport, error)
	CreateActiveSpeakerObserver(options ActiveSpeakerObserverOptions) (SpeakerObserver, error)
	// CanConsume reports whether a consumer with the given capabilities can
	// receive the producer's stream.
	CanConsume(producerID string, caps RtpCapabilities) bool
	Close()
}

// Transport is one ICE/DTLS connection between a participant and a router,
// carrying either produced (upstream) or consumed (downstream) media.
type Transport interface {
	ID() string
	IceParameters() IceParameters
	IceCandidates() []IceCandidate
	DtlsParameters() DtlsParameters
	Connect(dtls DtlsParameters) error
	SetMaxIncomingBitrate(bitrate int) error
	Produce(options ProduceOptions) (Producer, error)
	Consume(options ConsumeOptions) (Consumer, error)
	Close()
}

// Producer is a participant's outbound audio or video stream.
type Producer interface {
	ID() string
	Kind() string
	Pause() error
	Resume() error
	Paused() bool
	Close()
}

// Consumer is a participant's inbound copy of another participant's producer.
type Consumer interface {
	ID() string
	Kind() string
	ProducerID() string
	RtpParameters() RtpParameters
	Resume() error
	Close()
}

// SpeakerObserver reports which registered audio producer is currently
// dominant, polled at the interval it was created with. It never chooses
// dominance itself; it only relays what the engine detected.
type SpeakerObserver interface {
	AddProducer(producerID string) error
	RemoveProducer(producerID string) error
	// OnDominantSpeaker registers the single handler for dominance changes.
	OnDominantSpeaker(handler func(producerID string))
	Close()
}

type RouterOptions struct {
	// MediaCodecs restricts the codecs the router negotiates. Nil means the
	// engine default set.
	MediaCodecs RtpCapabilities
}

type WebRtcTransportOptions struct {
	EnableUDP                       bool
	EnableTCP                       bool
	PreferUDP                       bool
	InitialAvailableOutgoingBitrate int
}

type ActiveSpeakerObserverOptions struct {
	Interval time.Duration
}

type ProduceOptions struct {
	Kind          string
	RtpParameters RtpParameters
}

type ConsumeOptions struct {
	ProducerID      string
	RtpCapabilities RtpCapabilities
	// Paused creates the consumer paused; the consuming peer resumes it once
	// its local track is wired up.
	Paused bool
}
