// Package core holds the conferencing state machine: rooms, per-connection
// clients, and the active-speaker forwarding computation. It owns no
// transport or HTTP concerns; adapters drive it and the media engine is
// reached only through the media facade.
package core

import "errors"

// SessionID identifies one signaling connection and the Client attached to
// it. Rooms and the registry key everything by it, so Client and Room never
// hold mutual references.
type SessionID string

var (
	ErrNoUpstreamTransport   = errors.New("no upstream transport")
	ErrNoDownstreamTransport = errors.New("no downstream transport for producer")
	ErrUnknownTransport      = errors.New("unknown transport")
	ErrNoProducer            = errors.New("no such producer")
	ErrUnknownDirection      = errors.New("unknown transport direction")
)

// TransportDirection distinguishes the upstream (producer) transport from
// per-peer downstream (consumer) transports.
type TransportDirection string

const (
	DirectionProducer TransportDirection = "producer"
	DirectionConsumer TransportDirection = "consumer"
)

// ParseTransportDirection validates a direction received over the wire.
func ParseTransportDirection(raw string) (TransportDirection, error) {
	switch TransportDirection(raw) {
	case DirectionProducer, DirectionConsumer:
		return TransportDirection(raw), nil
	}
	return "", ErrUnknownDirection
}
