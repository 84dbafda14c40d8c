package localengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crackersam/mediasoup-raw/internal/media"
)

func newRouter(t *testing.T, e *Engine) media.Router {
	t.Helper()
	w, err := e.NewWorker()
	require.NoError(t, err)
	r, err := w.CreateRouter(media.RouterOptions{})
	require.NoError(t, err)
	return r
}

func TestCanConsume(t *testing.T) {
	e := New()
	r := newRouter(t, e)

	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)
	producer, err := transport.Produce(media.ProduceOptions{Kind: "audio"})
	require.NoError(t, err)

	caps := r.RtpCapabilities()
	assert.True(t, r.CanConsume(producer.ID(), caps))
	assert.False(t, r.CanConsume("no-such-producer", caps))
	assert.False(t, r.CanConsume(producer.ID(), nil))

	e.SetRefuseConsume(true)
	assert.False(t, r.CanConsume(producer.ID(), caps))
	e.SetRefuseConsume(false)

	producer.Close()
	assert.False(t, r.CanConsume(producer.ID(), caps))
}

func TestFailureInjection(t *testing.T) {
	e := New()
	r := newRouter(t, e)

	e.FailNextTransport()
	_, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	assert.ErrorIs(t, err, ErrInjected)

	// The flag is one-shot.
	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)

	e.FailNextProduce()
	_, err = transport.Produce(media.ProduceOptions{Kind: "audio"})
	assert.ErrorIs(t, err, ErrInjected)

	producer, err := transport.Produce(media.ProduceOptions{Kind: "audio"})
	require.NoError(t, err)

	e.FailNextConsume()
	_, err = transport.Consume(media.ConsumeOptions{ProducerID: producer.ID()})
	assert.ErrorIs(t, err, ErrInjected)
}

func TestConnectValidatesDtls(t *testing.T) {
	e := New()
	r := newRouter(t, e)
	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)

	err = transport.Connect(media.DtlsParameters{Role: "client"})
	assert.ErrorIs(t, err, ErrInvalidDtls)
	assert.NotErrorIs(t, err, ErrInjected)

	assert.NoError(t, transport.Connect(media.DtlsParameters{
		Fingerprints: []media.DtlsFingerprint{{Algorithm: "sha-256", Value: "aa:bb"}},
	}))
}

func TestConsumeUnknownProducer(t *testing.T) {
	e := New()
	r := newRouter(t, e)
	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)

	_, err = transport.Consume(media.ConsumeOptions{ProducerID: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownProducer)
	assert.NotErrorIs(t, err, ErrInjected)
}

func TestCandidatePortRange(t *testing.T) {
	e := New()
	e.SetPortRange(50000, 50001)
	r := newRouter(t, e)

	var ports []int
	for i := 0; i < 3; i++ {
		transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
		require.NoError(t, err)
		cands := transport.IceCandidates()
		require.Len(t, cands, 1)
		ports = append(ports, int(cands[0].Port))
	}
	// Ports cycle within the configured range.
	assert.Equal(t, []int{50000, 50001, 50000}, ports)

	// Bad ranges are ignored.
	e.SetPortRange(0, 10)
	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 50001, int(transport.IceCandidates()[0].Port))
}

func TestObserverTrigger(t *testing.T) {
	e := New()
	r := newRouter(t, e)
	obs, err := r.CreateActiveSpeakerObserver(media.ActiveSpeakerObserverOptions{})
	require.NoError(t, err)

	var got []string
	obs.OnDominantSpeaker(func(pid string) { got = append(got, pid) })

	// Unregistered producers never fire.
	obs.(*observer).Trigger("p1")
	assert.Empty(t, got)

	require.NoError(t, obs.AddProducer("p1"))
	obs.(*observer).Trigger("p1")
	assert.Equal(t, []string{"p1"}, got)

	require.NoError(t, obs.RemoveProducer("p1"))
	obs.(*observer).Trigger("p1")
	assert.Equal(t, []string{"p1"}, got)

	require.NoError(t, obs.AddProducer("p1"))
	obs.Close()
	obs.(*observer).Trigger("p1")
	assert.Equal(t, []string{"p1"}, got)
}

func TestResourceTracking(t *testing.T) {
	e := New()
	r := newRouter(t, e)

	transport, err := r.CreateWebRtcTransport(media.WebRtcTransportOptions{})
	require.NoError(t, err)
	producer, err := transport.Produce(media.ProduceOptions{Kind: "audio"})
	require.NoError(t, err)
	consumer, err := transport.Consume(media.ConsumeOptions{ProducerID: producer.ID(), Paused: true})
	require.NoError(t, err)

	assert.Equal(t, 1, e.OpenTransports())
	assert.Equal(t, 1, e.OpenProducers())
	assert.Equal(t, 1, e.OpenConsumers())
	assert.True(t, consumer.(interface{ Paused() bool }).Paused())

	consumer.Close()
	producer.Close()
	transport.Close()
	assert.Equal(t, 0, e.OpenTransports())
	assert.Equal(t, 0, e.OpenProducers())
	assert.Equal(t, 0, e.OpenConsumers())

	// Double close does not drive counters negative.
	transport.Close()
	assert.Equal(t, 0, e.OpenTransports())
}
