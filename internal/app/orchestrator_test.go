package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crackersam/mediasoup-raw/internal/core"
	"github.com/crackersam/mediasoup-raw/internal/domain"
	"github.com/crackersam/mediasoup-raw/internal/media"
	"github.com/crackersam/mediasoup-raw/internal/media/localengine"
	"github.com/crackersam/mediasoup-raw/internal/sfu"
)

type nopSender struct{}

func (nopSender) TrySend([]byte) error { return nil }

var testDtls = media.DtlsParameters{
	Role:         "client",
	Fingerprints: []media.DtlsFingerprint{{Algorithm: "sha-256", Value: "aa:bb"}},
}

type producerPush struct {
	sid    core.SessionID
	update core.Update
}

type disconnectPush struct {
	sid core.SessionID
	pid string
}

// pushRecorder captures server-initiated events so tests can assert on
// exactly who was told what.
type pushRecorder struct {
	mu          sync.Mutex
	producers   []producerPush
	disconnects []disconnectPush
}

func (r *pushRecorder) PushNewProducers(sid core.SessionID, _ media.RtpCapabilities, u core.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers = append(r.producers, producerPush{sid: sid, update: u})
}

func (r *pushRecorder) PushClientDisconnected(sid core.SessionID, pid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, disconnectPush{sid: sid, pid: pid})
}

func (r *pushRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers = nil
	r.disconnects = nil
}

func (r *pushRecorder) producersFor(sid core.SessionID) []core.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Update
	for _, p := range r.producers {
		if p.sid == sid {
			out = append(out, p.update)
		}
	}
	return out
}

func (r *pushRecorder) disconnectsFor(sid core.SessionID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.disconnects {
		if d.sid == sid {
			out = append(out, d.pid)
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, engine *localengine.Engine) (*Orchestrator, *pushRecorder, *sfu.Pool) {
	t.Helper()
	pool, err := sfu.NewPool(engine, 2)
	require.NoError(t, err)
	rec := &pushRecorder{}
	orch := &Orchestrator{
		Registry: NewRegistry(),
		Push:     rec,
		Cap:      2,
		Transport: core.TransportOptions{
			InitialOutgoingBitrate: 1_000_000,
			MaxIncomingBitrate:     1_500_000,
		},
	}
	orch.Rooms = NewRoomManager(pool, 300*time.Millisecond, orch.OnDominantSpeaker)
	return orch, rec, pool
}

// joinAndProduce runs the full signaling happy path for one peer: join,
// upstream transport, connect, audio and video producers. Returns the
// audio producer id.
func joinAndProduce(t *testing.T, orch *Orchestrator, sid core.SessionID, name string, room domain.RoomName) string {
	t.Helper()
	_, err := orch.JoinRoom(sid, name, room, nopSender{})
	require.NoError(t, err)
	_, err = orch.RequestTransport(sid, "producer", "")
	require.NoError(t, err)
	require.NoError(t, orch.ConnectTransport(sid, "producer", "", testDtls))
	audio, err := orch.StartProducing(sid, "audio", media.RtpParameters(`{}`))
	require.NoError(t, err)
	_, err = orch.StartProducing(sid, "video", media.RtpParameters(`{}`))
	require.NoError(t, err)
	return audio
}

func TestJoinScenario(t *testing.T) {
	engine := localengine.New()
	orch, rec, _ := newTestOrchestrator(t, engine)

	resA, err := orch.JoinRoom("sidA", "alice", "main", nopSender{})
	require.NoError(t, err)
	assert.True(t, resA.NewRoom)
	assert.Empty(t, resA.AudioPIDs)
	assert.NotNil(t, resA.RouterRtpCapabilities)

	_, err = orch.RequestTransport("sidA", "producer", "")
	require.NoError(t, err)
	require.NoError(t, orch.ConnectTransport("sidA", "producer", "", testDtls))
	pA, err := orch.StartProducing("sidA", "audio", media.RtpParameters(`{}`))
	require.NoError(t, err)

	// Alone in the room, alice gets no offer for her own stream.
	assert.Empty(t, rec.producersFor("sidA"))

	resB, err := orch.JoinRoom("sidB", "bob", "main", nopSender{})
	require.NoError(t, err)
	assert.False(t, resB.NewRoom)
	assert.Equal(t, []string{pA}, resB.AudioPIDs)
	assert.Equal(t, []string{"alice"}, resB.UserNames)

	_, err = orch.RequestTransport("sidB", "producer", "")
	require.NoError(t, err)
	require.NoError(t, orch.ConnectTransport("sidB", "producer", "", testDtls))
	pB, err := orch.StartProducing("sidB", "audio", media.RtpParameters(`{}`))
	require.NoError(t, err)

	// Bob's audio producer triggers a delta for alice only.
	updates := rec.producersFor("sidA")
	require.Len(t, updates, 1)
	assert.Equal(t, []string{pB}, updates[0].AudioPIDs)
	assert.Empty(t, rec.producersFor("sidB"))
}

func TestDownstreamTransportAndConsumeFlow(t *testing.T) {
	engine := localengine.New()
	orch, _, _ := newTestOrchestrator(t, engine)

	pA := joinAndProduce(t, orch, "sidA", "alice", "main")
	_, err := orch.JoinRoom("sidB", "bob", "main", nopSender{})
	require.NoError(t, err)

	params, err := orch.RequestTransport("sidB", "consumer", pA)
	require.NoError(t, err)
	assert.NotEmpty(t, params.ID)
	require.NoError(t, orch.ConnectTransport("sidB", "consumer", pA, testDtls))

	res, err := orch.ConsumeMedia("sidB", pA, "audio", media.RtpCapabilities(`{}`))
	require.NoError(t, err)
	assert.Equal(t, pA, res.ProducerID)
	assert.Equal(t, domain.MediaAudio, res.Kind)

	// Consumers start paused and stay so until the peer is ready.
	require.NoError(t, orch.UnpauseConsumer("sidB", pA, "audio"))
}

func TestRequestTransportUnknownProducer(t *testing.T) {
	engine := localengine.New()
	orch, _, _ := newTestOrchestrator(t, engine)

	_, err := orch.JoinRoom("sidA", "alice", "main", nopSender{})
	require.NoError(t, err)
	_, err = orch.RequestTransport("sidA", "consumer", "no-such-pid")
	assert.ErrorIs(t, err, ErrUnknownProducer)
}

func TestOperationsRequireJoin(t *testing.T) {
	engine := localengine.New()
	orch, _, _ := newTestOrchestrator(t, engine)

	_, err := orch.RequestTransport("ghost", "producer", "")
	assert.ErrorIs(t, err, ErrNotJoined)
	_, err = orch.StartProducing("ghost", "audio", media.RtpParameters(`{}`))
	assert.ErrorIs(t, err, ErrNotJoined)
	assert.ErrorIs(t, orch.AudioChange("ghost", "mute"), ErrNotJoined)
}

func TestConsumeRefusedAndFailed(t *testing.T) {
	engine := localengine.New()
	orch, _, _ := newTestOrchestrator(t, engine)

	pA := joinAndProduce(t, orch, "sidA", "alice", "main")
	_, err := orch.JoinRoom("sidB", "bob", "main", nopSender{})
	require.NoError(t, err)
	_, err = orch.RequestTransport("sidB", "consumer", pA)
	require.NoError(t, err)

	engine.SetRefuseConsume(true)
	_, err = orch.ConsumeMedia("sidB", pA, "audio", media.RtpCapabilities(`{}`))
	assert.ErrorIs(t, err, ErrCannotConsume)
	engine.SetRefuseConsume(false)

	engine.FailNextConsume()
	_, err = orch.ConsumeMedia("sidB", pA, "audio", media.RtpCapabilities(`{}`))
	assert.ErrorIs(t, err, ErrConsumeFailed)
}

func TestAudioChange(t *testing.T) {
	engine := localengine.New()
	orch, _, _ := newTestOrchestrator(t, engine)

	joinAndProduce(t, orch, "sidA", "alice", "main")
	require.NoError(t, orch.AudioChange("sidA", "mute"))
	require.NoError(t, orch.AudioChange("sidA", "unmute"))
	assert.ErrorIs(t, orch.AudioChange("sidA", "deafen"), ErrBadAudioChange)
}

func TestRoomTornDownWhenLastClientLeaves(t *testing.T) {
	engine := localengine.New()
	orch, _, pool := newTestOrchestrator(t, engine)

	joinAndProduce(t, orch, "sidA", "alice", "main")
	assert.Equal(t, 1, orch.Rooms.Count())

	orch.Disconnect("sidA")
	assert.Equal(t, 0, orch.Rooms.Count())
	assert.Equal(t, []int{0, 0}, pool.Loads())
	assert.Equal(t, 0, engine.OpenTransports())
	assert.Equal(t, 0, engine.OpenProducers())

	// Disconnect is idempotent.
	orch.Disconnect("sidA")
}

func TestDisconnectOfTopSpeaker(t *testing.T) {
	engine := localengine.New()
	orch, rec, _ := newTestOrchestrator(t, engine)

	joinAndProduce(t, orch, "sidA", "alice", "main")
	joinAndProduce(t, orch, "sidB", "bob", "main")
	pC := joinAndProduce(t, orch, "sidC", "carol", "main")

	orch.OnDominantSpeaker("main", pC)
	rec.reset()

	orch.Disconnect("sidC")

	// Every remaining peer learns carol is gone and which resources to drop.
	assert.Equal(t, []string{pC}, rec.disconnectsFor("sidA"))
	assert.Equal(t, []string{pC}, rec.disconnectsFor("sidB"))

	// The forwarding set is recomputed without carol: each survivor is
	// offered the other's stream it was not yet holding.
	updA := rec.producersFor("sidA")
	require.NotEmpty(t, updA)
	for _, u := range updA {
		assert.NotContains(t, u.AudioPIDs, pC)
		assert.NotContains(t, u.ActiveList, pC)
	}
	room, ok := orch.Rooms.Get("main")
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
}

func TestDominantSpeakerPromotion(t *testing.T) {
	engine := localengine.New()
	orch, rec, _ := newTestOrchestrator(t, engine)

	pA := joinAndProduce(t, orch, "sidA", "alice", "main")
	pB := joinAndProduce(t, orch, "sidB", "bob", "main")
	pC := joinAndProduce(t, orch, "sidC", "carol", "main")
	rec.reset()

	orch.OnDominantSpeaker("main", pC)

	room, ok := orch.Rooms.Get("main")
	require.True(t, ok)
	assert.Equal(t, []string{pC, pA, pB}, room.ActiveSpeakers())

	// Unknown room is a no-op, not a panic.
	orch.OnDominantSpeaker("nowhere", pC)
}

func TestRemoveRefusedWhileOccupied(t *testing.T) {
	engine := localengine.New()
	orch, _, pool := newTestOrchestrator(t, engine)

	joinAndProduce(t, orch, "sidA", "alice", "main")

	// A teardown racing a fresh join rechecks occupancy under the manager
	// lock and backs off, so the member never sees a closed room.
	orch.Rooms.Remove("main")
	room, ok := orch.Rooms.Get("main")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
	require.NotNil(t, room.Router())

	_, err := orch.RequestTransport("sidA", "consumer", room.ActiveSpeakers()[0])
	require.NoError(t, err)

	// Once genuinely empty, removal proceeds.
	orch.Disconnect("sidA")
	assert.Equal(t, 0, orch.Rooms.Count())
	assert.Equal(t, []int{0, 0}, pool.Loads())
}

func TestRoomCreationFailureReleasesWorker(t *testing.T) {
	engine := localengine.New()
	orch, _, pool := newTestOrchestrator(t, engine)

	engine.FailNextRouter()
	_, err := orch.JoinRoom("sidA", "alice", "main", nopSender{})
	require.Error(t, err)
	assert.Equal(t, 0, orch.Rooms.Count())
	assert.Equal(t, []int{0, 0}, pool.Loads())
}
