package messages

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/automoto/physnet/shared/netconfig"
)

func TestRoundTrip(t *testing.T) {
	maxF := float32(math.MaxFloat32)
	tests := []struct {
		name string
		msg  Message
	}{
		{"input zero", PlayerInput{}},
		{"input full", PlayerInput{XZMoveInput: mgl32.Vec2{-1, 1}, Sprint: true, Jump: true, InputIndex: math.MaxUint32}},
		{"position zero", PlayerPosition{}},
		{"position max", PlayerPosition{
			ID:         math.MaxUint8,
			Pos:        mgl32.Vec3{-maxF, 0, maxF},
			Rot:        mgl32.Quat{W: -1, V: mgl32.Vec3{0.5, -0.5, 0.25}},
			LinVel:     mgl32.Vec3{-3, -2, -1},
			AngVel:     mgl32.Vec3{1e-38, -1e-38, 0},
			InputIndex: math.MaxUint32,
		}},
		{"rigidbody zero", RigidbodySync{}},
		{"rigidbody max", RigidbodySync{
			EntID:  math.MaxUint32,
			Pos:    mgl32.Vec3{1, 2, 3},
			Rot:    mgl32.QuatIdent(),
			LinVel: mgl32.Vec3{-4, -5, -6},
			AngVel: mgl32.Vec3{7, 8, 9},
		}},
		{"join zero", OtherPlayerJoin{}},
		{"join max", OtherPlayerJoin{ID: math.MaxUint8}},
		{"leave", OtherPlayerLeave{ID: 31}},
		{"scene empty", SetScene{}},
		{"scene name", SetScene{SceneName: "arena"}},
		{"scene full width", SetScene{SceneName: strings.Repeat("s", SceneNameSize)}},
		{"join request zero", PlayerJoinRequest{}},
		{"join request max", PlayerJoinRequest{GameVersion: math.MaxUint64, UserAuthID: math.MaxUint64, UserAuthUniverse: math.MaxUint16}},
		{"acceptance", PlayerJoinAcceptance{ServerSideID: math.MaxUint8}},
		{"rejection", PlayerJoinRejection{Reason: netconfig.RejectServerFull}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(b) != tt.msg.Type().Size() {
				t.Fatalf("encoded %d bytes, want %d", len(b), tt.msg.Type().Size())
			}
			if Type(b[0]) != tt.msg.Type() {
				t.Fatalf("tag = %d, want %d", b[0], tt.msg.Type())
			}
			got, err := Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.msg {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, tt.msg)
			}
		})
	}
}

func TestFixedSizes(t *testing.T) {
	want := map[Type]int{
		TypePlayerInput:          15,
		TypePlayerPosition:       58,
		TypeRigidbodySync:        57,
		TypeOtherPlayerJoin:      2,
		TypeOtherPlayerLeave:     2,
		TypeSetScene:             65,
		TypePlayerJoinRequest:    19,
		TypePlayerJoinAcceptance: 2,
		TypePlayerJoinRejection:  2,
	}
	if len(Types()) != len(want) {
		t.Fatalf("Types() has %d entries, want %d", len(Types()), len(want))
	}
	for _, typ := range Types() {
		if typ.Size() != want[typ] {
			t.Errorf("%s size = %d, want %d", typ, typ.Size(), want[typ])
		}
	}
}

func TestLittleEndianLayout(t *testing.T) {
	b, err := Encode(PlayerInput{XZMoveInput: mgl32.Vec2{1, 0}, Jump: true, InputIndex: 0x01020304})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		byte(TypePlayerInput),
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0x00, // 0.0
		0x00,                   // sprint
		0x01,                   // jump
		0x04, 0x03, 0x02, 0x01, // input index
	}
	if string(b) != string(want) {
		t.Fatalf("encoded % x, want % x", b, want)
	}
}

func TestQuatWireOrder(t *testing.T) {
	b, err := Encode(RigidbodySync{Rot: mgl32.Quat{W: 1}})
	if err != nil {
		t.Fatal(err)
	}
	// tag, entId, pos, then x y z w
	w := b[1+4+12+12:]
	if w[0] != 0x00 || w[3] != 0x3f || w[2] != 0x80 {
		t.Fatalf("w component not last in quaternion: % x", b[1+4+12:1+4+12+16])
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, typ := range Types() {
		full := make([]byte, typ.Size())
		full[0] = byte(typ)
		for n := 1; n < typ.Size(); n++ {
			_, err := Decode(full[:n])
			if !errors.Is(err, ErrMalformedMessage) {
				t.Fatalf("%s truncated to %d: err = %v, want ErrMalformedMessage", typ, n, err)
			}
			var me *MalformedError
			if !errors.As(err, &me) || me.Got != n || me.Want != typ.Size() || me.Type != typ {
				t.Fatalf("%s truncated to %d: unexpected error detail %+v", typ, n, me)
			}
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Decode(nil) err = %v", err)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	for _, tag := range []byte{0, byte(TypePlayerJoinRejection) + 1, 0xff} {
		if _, err := Decode([]byte{tag, 0, 0, 0}); !errors.Is(err, ErrUnknownMessage) {
			t.Fatalf("tag %d: err = %v, want ErrUnknownMessage", tag, err)
		}
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	b, _ := Encode(OtherPlayerJoin{ID: 7})
	b = append(b, 0xde, 0xad)
	m, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if m != (OtherPlayerJoin{ID: 7}) {
		t.Fatalf("got %+v", m)
	}
}

func TestDecodeBoolNonZero(t *testing.T) {
	b, _ := Encode(PlayerInput{})
	b[9] = 0x7f
	m, _ := Decode(b)
	if !m.(PlayerInput).Sprint {
		t.Fatal("non-zero bool byte decoded as false")
	}
}

func TestSceneNameTooLong(t *testing.T) {
	_, err := Encode(SetScene{SceneName: strings.Repeat("x", SceneNameSize+1)})
	if !errors.Is(err, ErrSceneNameTooLong) {
		t.Fatalf("err = %v, want ErrSceneNameTooLong", err)
	}
}
