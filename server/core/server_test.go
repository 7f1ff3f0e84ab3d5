package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/automoto/physnet/archetypes"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/shared/leveldata"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/physics"
)

const testAddr = "server:3011"

func testScenes() map[string]*leveldata.Scene {
	spawns := []leveldata.SpawnPoint{{X: 2, Z: 2}, {X: 4, Z: 2, Index: 1}, {X: 6, Z: 2, Index: 2}, {X: 8, Z: 2, Index: 3}}
	return map[string]*leveldata.Scene{
		"alpha": {
			Name:  "alpha",
			Width: 20,
			Depth: 20,
			Walls: []leveldata.Wall{{MinX: 0, MinZ: 19, MaxX: 20, MaxZ: 20}},
			Props: []leveldata.Prop{
				{Name: "crate", Position: mgl32.Vec3{15, 0.5, 15}, HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}, Mass: 1},
			},
			Spawns: spawns,
		},
		"beta": {
			Name:   "beta",
			Width:  10,
			Depth:  10,
			Spawns: spawns[:2],
		},
	}
}

type harness struct {
	t   *testing.T
	net *network.LoopbackNetwork
	srv *Server
}

func newHarness(t *testing.T, maxPlayers int, modify func(*Options)) *harness {
	t.Helper()
	n := network.NewLoopbackNetwork(1)
	ns := network.NewServer(n.NewHost(), maxPlayers, nil)
	if err := ns.Start(testAddr); err != nil {
		t.Fatalf("Start: %v", err)
	}
	opts := Options{
		Scenes:   testScenes(),
		Scene:    "alpha",
		Physics:  physics.DefaultParams(),
		SendRate: 1,
	}
	if modify != nil {
		modify(&opts)
	}
	srv, err := NewServer(ns, opts, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &harness{t: t, net: n, srv: srv}
}

type testClient struct {
	*network.Client
	got      []messages.Message
	rejected bool
	reason   netconfig.RejectReason
}

// connect opens a client session and sends its join request.
func (h *harness) connect(version uint64) *testClient {
	tc := h.dial(version)
	tc.poll()
	return tc
}

// dial opens a client session. The join request goes out on its first poll.
func (h *harness) dial(version uint64) *testClient {
	h.t.Helper()
	tc := &testClient{}
	tc.Client = network.NewClient(h.net.NewHost(),
		messages.PlayerJoinRequest{GameVersion: version, UserAuthID: 42, UserAuthUniverse: 1},
		network.ClientCallbacks{OnRejected: func(r netconfig.RejectReason) {
			tc.rejected, tc.reason = true, r
		}}, nil)
	if err := tc.Connect(testAddr); err != nil {
		h.t.Fatalf("Connect: %v", err)
	}
	return tc
}

// join connects a client and completes its handshake.
func (h *harness) join() *testClient {
	h.t.Helper()
	tc := h.connect(1)
	h.srv.Tick()
	tc.poll()
	if !tc.Joined() {
		h.t.Fatalf("client not joined, state %s", tc.State())
	}
	return tc
}

func (tc *testClient) poll() {
	tc.ProcessMessages(func(r network.Received) { tc.got = append(tc.got, r.Message) })
}

func (tc *testClient) drain() []messages.Message {
	tc.poll()
	got := tc.got
	tc.got = nil
	return got
}

func positions(ms []messages.Message) []messages.PlayerPosition {
	var out []messages.PlayerPosition
	for _, m := range ms {
		if p, ok := m.(messages.PlayerPosition); ok {
			out = append(out, p)
		}
	}
	return out
}

func countType(ms []messages.Message, typ messages.Type) int {
	n := 0
	for _, m := range ms {
		if m.Type() == typ {
			n++
		}
	}
	return n
}

func TestNewServerUnknownScene(t *testing.T) {
	n := network.NewLoopbackNetwork(1)
	_, err := NewServer(network.NewServer(n.NewHost(), 4, nil), Options{Scenes: testScenes(), Scene: "gamma"}, nil)
	if !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("err = %v, want ErrUnknownScene", err)
	}
}

func TestBasicJoin(t *testing.T) {
	h := newHarness(t, 4, nil)
	cl := h.connect(1)
	h.srv.Tick()

	got := cl.drain()
	if id, ok := cl.ServerSideID(); !ok || id != 0 {
		t.Fatalf("serverSideID = %d, %v", id, ok)
	}
	if len(got) == 0 {
		t.Fatal("no messages after join")
	}
	if sc, ok := got[0].(messages.SetScene); !ok || sc.SceneName != "alpha" {
		t.Errorf("first message = %+v, want SetScene alpha", got[0])
	}
	if n := countType(got, messages.TypeRigidbodySync); n < 1 {
		t.Errorf("no initial rigidbody sync")
	}
	if h.srv.PlayerCount() != 1 {
		t.Errorf("PlayerCount = %d", h.srv.PlayerCount())
	}
	slot, _ := h.srv.Slot(0)
	if !slot.Present || slot.UserAuthID != 42 || slot.UserAuthUniverse != 1 {
		t.Errorf("slot 0 = %+v", slot)
	}

	if err := cl.SendToServer(messages.PlayerInput{InputIndex: 1}, netconfig.ChannelPlayer, netconfig.Unreliable); err != nil {
		t.Fatal(err)
	}
	h.srv.Tick()
	pos := positions(cl.drain())
	if len(pos) != 1 || pos[0].ID != 0 || pos[0].InputIndex != 1 {
		t.Fatalf("positions = %+v, want one for id 0 acknowledging input 1", pos)
	}
}

func TestFullTableRejectsJoin(t *testing.T) {
	h := newHarness(t, netconfig.MaxPlayers, nil)
	clients := make([]*testClient, 0, netconfig.MaxPlayers+1)
	for i := 0; i <= netconfig.MaxPlayers; i++ {
		clients = append(clients, h.connect(1))
		h.srv.Tick()
	}
	for _, c := range clients {
		c.poll()
	}

	for i, c := range clients[:netconfig.MaxPlayers] {
		if id, ok := c.ServerSideID(); !ok || int(id) != i {
			t.Fatalf("client %d: id %d joined %v", i, id, ok)
		}
	}
	last := clients[netconfig.MaxPlayers]
	if !last.rejected || last.reason != netconfig.RejectServerFull {
		t.Fatalf("extra client rejected=%v reason=%s", last.rejected, last.reason)
	}
	if last.State() != network.StateDisconnected {
		t.Errorf("rejected client state = %s", last.State())
	}
	if h.srv.PlayerCount() != netconfig.MaxPlayers {
		t.Errorf("PlayerCount = %d", h.srv.PlayerCount())
	}
}

func TestJoinClaimsSlotFreedAfterConnect(t *testing.T) {
	h := newHarness(t, 1, nil)
	a := h.join()

	// b connects while the only slot is taken and asks to join after a left.
	b := h.dial(1)
	a.Disconnect()
	b.poll()
	h.srv.Tick()
	b.poll()

	if b.rejected {
		t.Fatalf("join rejected with %s after the slot was freed", b.reason)
	}
	if id, ok := b.ServerSideID(); !ok || id != 0 {
		t.Fatalf("id %d joined %v, want slot 0", id, ok)
	}
	if h.srv.PlayerCount() != 1 {
		t.Errorf("PlayerCount = %d, want 1", h.srv.PlayerCount())
	}
	if s, _ := h.srv.Slot(0); !s.Present || s.Peer == nil {
		t.Error("slot 0 not occupied by the late peer")
	}
}

func TestVersionMismatchRejected(t *testing.T) {
	h := newHarness(t, 4, func(o *Options) { o.RequireVersion = true })
	cl := h.connect(1)
	h.srv.Tick()
	cl.poll()
	if !cl.rejected || cl.reason != netconfig.RejectVersionMismatch {
		t.Fatalf("rejected=%v reason=%s", cl.rejected, cl.reason)
	}
	h.srv.Tick()
	if s, _ := h.srv.Slot(0); s.Present {
		t.Error("rejected client occupies a slot")
	}
	if h.srv.PlayerCount() != 0 {
		t.Errorf("PlayerCount = %d", h.srv.PlayerCount())
	}
}

func TestSlotLifecycle(t *testing.T) {
	h := newHarness(t, 4, nil)
	a, b, c := h.join(), h.join(), h.join()
	a.drain()
	c.drain()

	left, _ := h.srv.Slot(1)
	b.Disconnect()
	h.srv.Tick()

	if h.srv.PlayerCount() != 2 {
		t.Fatalf("PlayerCount = %d, want 2", h.srv.PlayerCount())
	}
	if s, _ := h.srv.Slot(1); s.Present {
		t.Fatal("slot 1 still present")
	}
	world := h.srv.Level().World
	for _, e := range append(left.Rig.Entities(), left.Rig.Joint) {
		if world.Valid(e) {
			t.Errorf("entity %v of the leaving player still exists", e)
		}
	}
	for _, cl := range []*testClient{a, c} {
		got := cl.drain()
		found := false
		for _, m := range got {
			if l, ok := m.(messages.OtherPlayerLeave); ok && l.ID == 1 {
				found = true
			}
		}
		if !found {
			t.Errorf("client did not hear about the leave")
		}
	}

	d := h.join()
	if id, _ := d.ServerSideID(); id != 1 {
		t.Errorf("rejoin got slot %d, want the freed slot 1", id)
	}
	if h.srv.PlayerCount() != 3 {
		t.Errorf("PlayerCount = %d, want 3", h.srv.PlayerCount())
	}
}

func TestNewcomerLearnsExistingPlayers(t *testing.T) {
	h := newHarness(t, 4, nil)
	a := h.join()
	a.drain()
	b := h.connect(1)
	h.srv.Tick()

	var told []uint8
	for _, m := range b.drain() {
		if j, ok := m.(messages.OtherPlayerJoin); ok {
			told = append(told, j.ID)
		}
	}
	if len(told) != 1 || told[0] != 0 {
		t.Errorf("newcomer told about %v, want [0]", told)
	}

	var announced []uint8
	for _, m := range a.drain() {
		if j, ok := m.(messages.OtherPlayerJoin); ok {
			announced = append(announced, j.ID)
		}
	}
	if len(announced) != 1 || announced[0] != 1 {
		t.Errorf("existing player told about %v, want [1]", announced)
	}
}

func TestBroadcastDecimation(t *testing.T) {
	tests := []struct {
		sendRate int
		ticks    int
		want     int
	}{
		{0, 20, 20},
		{1, 20, 20},
		{5, 50, 10},
		{3, 30, 10},
	}
	for _, tt := range tests {
		h := newHarness(t, 4, func(o *Options) { o.SendRate = tt.sendRate })
		cl := h.join()
		cl.drain()

		before := h.srv.Broadcasts()
		got := 0
		for i := 0; i < tt.ticks; i++ {
			h.srv.Tick()
			got += len(positions(cl.drain()))
		}
		if got != tt.want {
			t.Errorf("send rate %d: %d positions in %d ticks, want %d", tt.sendRate, got, tt.ticks, tt.want)
		}
		if n := int(h.srv.Broadcasts() - before); n != tt.want {
			t.Errorf("send rate %d: %d broadcasts, want %d", tt.sendRate, n, tt.want)
		}
	}
}

func TestInputOrdering(t *testing.T) {
	h := newHarness(t, 4, nil)
	cl := h.join()
	send := func(in messages.PlayerInput) {
		if err := cl.SendToServer(in, netconfig.ChannelPlayer, netconfig.Unreliable); err != nil {
			t.Fatal(err)
		}
	}

	// Later input of the same tick wins, but a jump stays latched.
	send(messages.PlayerInput{XZMoveInput: mgl32.Vec2{0, 1}, Jump: true, InputIndex: 4})
	send(messages.PlayerInput{XZMoveInput: mgl32.Vec2{1, 0}, InputIndex: 5})
	h.srv.Tick()

	slot, _ := h.srv.Slot(0)
	world := h.srv.Level().World
	if slot.LastAcknowledgedInput != 5 {
		t.Fatalf("last acknowledged = %d, want 5", slot.LastAcknowledgedInput)
	}
	if got := world.Intent(slot.Rig.Locosphere).Move; got != (mgl32.Vec2{1, 0}) {
		t.Errorf("intent = %v, want (1,0)", got)
	}
	if vy := world.Velocity(slot.Rig.Locosphere).Linear.Y(); vy != world.Params().JumpSpeed {
		t.Errorf("vertical velocity = %v, want a jump", vy)
	}

	// A reordered older input is ignored.
	send(messages.PlayerInput{XZMoveInput: mgl32.Vec2{-1, 0}, InputIndex: 3})
	h.srv.Tick()
	slot, _ = h.srv.Slot(0)
	if slot.LastAcknowledgedInput != 5 {
		t.Errorf("stale input moved the acknowledgement to %d", slot.LastAcknowledgedInput)
	}
	if got := world.Intent(slot.Rig.Locosphere).Move; got != (mgl32.Vec2{1, 0}) {
		t.Errorf("stale input changed the intent to %v", got)
	}
}

func TestInputFromUnslottedPeerIgnored(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.join()
	extra := h.connect(1)
	if err := extra.SendToServer(messages.PlayerInput{InputIndex: 9}, netconfig.ChannelPlayer, netconfig.Unreliable); err != nil {
		t.Fatal(err)
	}
	h.srv.Tick()
	if s, _ := h.srv.Slot(0); s.LastAcknowledgedInput != 0 {
		t.Errorf("input from an unslotted peer acknowledged as %d", s.LastAcknowledgedInput)
	}
}

func TestSleepingBodiesNotBroadcast(t *testing.T) {
	h := newHarness(t, 4, nil)
	cl := h.join()
	cl.drain()

	// The crate starts awake and settles after SleepTicks quiet steps.
	h.srv.Tick()
	if n := countType(cl.drain(), messages.TypeRigidbodySync); n != 1 {
		t.Fatalf("awake crate synced %d times, want 1", n)
	}
	for i := 0; i < physics.DefaultParams().SleepTicks+5; i++ {
		h.srv.Tick()
	}
	cl.drain()
	crate := h.srv.Level().Bodies[0]
	if !h.srv.Level().World.IsSleeping(crate) {
		t.Fatal("crate never fell asleep")
	}
	for i := 0; i < 10; i++ {
		h.srv.Tick()
	}
	if n := countType(cl.drain(), messages.TypeRigidbodySync); n != 0 {
		t.Errorf("sleeping crate synced %d times", n)
	}
}

func TestChangeScene(t *testing.T) {
	h := newHarness(t, 4, nil)
	cl := h.join()
	_ = cl.SendToServer(messages.PlayerInput{InputIndex: 7}, netconfig.ChannelPlayer, netconfig.Unreliable)
	h.srv.Tick()
	cl.drain()

	if err := h.srv.ChangeScene("nowhere"); !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("ChangeScene unknown = %v", err)
	}
	if err := h.srv.ChangeScene("beta"); err != nil {
		t.Fatalf("ChangeScene: %v", err)
	}
	got := cl.drain()
	if len(got) == 0 {
		t.Fatal("no SetScene broadcast")
	}
	if sc, ok := got[0].(messages.SetScene); !ok || sc.SceneName != "beta" {
		t.Fatalf("got %+v, want SetScene beta", got[0])
	}

	slot, _ := h.srv.Slot(0)
	if !h.srv.Level().World.Valid(slot.Rig.Locosphere) {
		t.Error("player was not respawned in the new scene")
	}
	if slot.LastAcknowledgedInput != 7 {
		t.Errorf("acknowledged input reset to %d", slot.LastAcknowledgedInput)
	}
	if len(h.srv.Level().Bodies) != 0 {
		t.Errorf("beta has no props, got %d bodies", len(h.srv.Level().Bodies))
	}
}

func TestChangeSceneReannouncesPlayers(t *testing.T) {
	h := newHarness(t, 4, nil)
	a, b := h.join(), h.join()
	a.drain()
	b.drain()

	if err := h.srv.ChangeScene("beta"); err != nil {
		t.Fatalf("ChangeScene: %v", err)
	}
	for i, cl := range []*testClient{a, b} {
		got := cl.drain()
		if len(got) != 2 {
			t.Fatalf("client %d got %+v, want SetScene and one join", i, got)
		}
		if _, ok := got[0].(messages.SetScene); !ok {
			t.Errorf("client %d: first message %+v, want SetScene", i, got[0])
		}
		want := messages.OtherPlayerJoin{ID: uint8(1 - i)}
		if got[1] != want {
			t.Errorf("client %d: got %+v, want %+v", i, got[1], want)
		}
	}
}

func TestUntaggedBodiesNotSynced(t *testing.T) {
	h := newHarness(t, 4, nil)
	cl := h.join()
	cl.drain()

	// Debris spawned at runtime is simulated but has no network id.
	archetypes.Prop.Spawn(h.srv.Level().World, physics.BodyDesc{
		Position:    mgl32.Vec3{5, 0.5, 5},
		HalfExtents: mgl32.Vec3{0.25, 0.25, 0.25},
		Mass:        1,
		Dynamic:     true,
	})
	h.srv.Tick()

	var synced []uint32
	for _, m := range cl.drain() {
		if r, ok := m.(messages.RigidbodySync); ok {
			synced = append(synced, r.EntID)
		}
	}
	if len(synced) != 1 || synced[0] != 0 {
		t.Errorf("synced ids %v, want only the crate", synced)
	}

	late := h.connect(1)
	h.srv.Tick()
	if n := countType(late.drain(), messages.TypeRigidbodySync); n != 2 {
		t.Errorf("newcomer got %d body syncs, want the crate once on join and once in the broadcast", n)
	}
}
