package messages

import (
	"bytes"
	"fmt"

	"github.com/automoto/physnet/shared/netconfig"
)

// OtherPlayerJoin tells existing clients to spawn a remote player.
type OtherPlayerJoin struct {
	ID uint8
}

func (OtherPlayerJoin) Type() Type { return TypeOtherPlayerJoin }

func (m OtherPlayerJoin) put(w *writer) error {
	w.u8(m.ID)
	return nil
}

func decodeOtherPlayerJoin(r *reader) Message {
	return OtherPlayerJoin{ID: r.u8()}
}

// OtherPlayerLeave tells remaining clients to remove a remote player.
type OtherPlayerLeave struct {
	ID uint8
}

func (OtherPlayerLeave) Type() Type { return TypeOtherPlayerLeave }

func (m OtherPlayerLeave) put(w *writer) error {
	w.u8(m.ID)
	return nil
}

func decodeOtherPlayerLeave(r *reader) Message {
	return OtherPlayerLeave{ID: r.u8()}
}

// SetScene switches every client to the named scene. It must be sent reliably.
// The name occupies a zero-padded field of SceneNameSize bytes.
type SetScene struct {
	SceneName string
}

func (SetScene) Type() Type { return TypeSetScene }

func (m SetScene) put(w *writer) error {
	if len(m.SceneName) > SceneNameSize {
		return fmt.Errorf("%w: %d bytes", ErrSceneNameTooLong, len(m.SceneName))
	}
	w.bytes([]byte(m.SceneName))
	return nil
}

func decodeSetScene(r *reader) Message {
	name := r.bytes(SceneNameSize)
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return SetScene{SceneName: string(name)}
}

// PlayerJoinRequest is the first message a client sends after connecting.
type PlayerJoinRequest struct {
	GameVersion      uint64
	UserAuthID       uint64
	UserAuthUniverse uint16
}

func (PlayerJoinRequest) Type() Type { return TypePlayerJoinRequest }

func (m PlayerJoinRequest) put(w *writer) error {
	w.u64(m.GameVersion)
	w.u64(m.UserAuthID)
	w.u16(m.UserAuthUniverse)
	return nil
}

func decodePlayerJoinRequest(r *reader) Message {
	return PlayerJoinRequest{
		GameVersion:      r.u64(),
		UserAuthID:       r.u64(),
		UserAuthUniverse: r.u16(),
	}
}

// PlayerJoinAcceptance carries the slot the server assigned to the joining client.
type PlayerJoinAcceptance struct {
	ServerSideID uint8
}

func (PlayerJoinAcceptance) Type() Type { return TypePlayerJoinAcceptance }

func (m PlayerJoinAcceptance) put(w *writer) error {
	w.u8(m.ServerSideID)
	return nil
}

func decodePlayerJoinAcceptance(r *reader) Message {
	return PlayerJoinAcceptance{ServerSideID: r.u8()}
}

// PlayerJoinRejection refuses a join request. The server disconnects the
// peer right after sending it.
type PlayerJoinRejection struct {
	Reason netconfig.RejectReason
}

func (PlayerJoinRejection) Type() Type { return TypePlayerJoinRejection }

func (m PlayerJoinRejection) put(w *writer) error {
	w.u8(uint8(m.Reason))
	return nil
}

func decodePlayerJoinRejection(r *reader) Message {
	return PlayerJoinRejection{Reason: netconfig.RejectReason(r.u8())}
}
