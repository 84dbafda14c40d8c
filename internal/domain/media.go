package domain

import "errors"

var ErrUnknownMediaKind = errors.New("unknown media kind")

// MediaKind distinguishes the two streams a participant can produce.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind validates a kind received over the wire.
func ParseMediaKind(raw string) (MediaKind, error) {
	switch MediaKind(raw) {
	case MediaAudio, MediaVideo:
		return MediaKind(raw), nil
	}
	return "", ErrUnknownMediaKind
}
