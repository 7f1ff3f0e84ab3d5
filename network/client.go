package network

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateAwaitingJoinAccept
	StateJoined
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingJoinAccept:
		return "awaiting join accept"
	case StateJoined:
		return "joined"
	}
	return "disconnected"
}

// ClientCallbacks are invoked from ProcessMessages on the tick goroutine.
// Any of them may be nil.
type ClientCallbacks struct {
	OnJoined       func(serverSideID uint8)
	OnRejected     func(reason netconfig.RejectReason)
	OnDisconnected func(reason netconfig.DisconnectReason)
}

// Client is a session with exactly one server. It is not safe for concurrent
// use: every method is called from the simulation tick.
type Client struct {
	host      Host
	log       logrus.FieldLogger
	join      messages.PlayerJoinRequest
	callbacks ClientCallbacks

	state        ClientState
	server       Peer
	serverSideID uint8
	lastError    error
}

// NewClient creates a disconnected client. join is sent as soon as the
// transport connects.
func NewClient(host Host, join messages.PlayerJoinRequest, callbacks ClientCallbacks, log logrus.FieldLogger) *Client {
	return &Client{
		host:      host,
		log:       logging.Component(log, "client"),
		join:      join,
		callbacks: callbacks,
		state:     StateDisconnected,
	}
}

// Connect starts connecting to address. Callers check IsConnected first:
// while a session exists the call is logged and ignored.
func (c *Client) Connect(address string) error {
	if c.state != StateDisconnected {
		c.log.WithField("address", address).Warn("connect ignored, session already open")
		return ErrAlreadyConnected
	}
	c.lastError = nil
	if err := c.host.Connect(address); err != nil {
		c.lastError = err
		c.log.WithError(err).Error("connect failed")
		return err
	}
	c.state = StateConnecting
	c.log.WithField("address", address).Info("connecting")
	return nil
}

// SendToServer encodes msg and sends it on ch. Failures are logged and the
// message dropped; there is no retry.
func (c *Client) SendToServer(msg messages.Message, ch netconfig.Channel, rel netconfig.Reliability) error {
	if c.server == nil {
		return ErrNotConnected
	}
	b, err := messages.Encode(msg)
	if err != nil {
		c.log.WithError(err).Error("encode failed")
		return err
	}
	if err := c.server.Send(ch, rel, b); err != nil {
		c.log.WithError(err).WithField("message", msg.Type()).Warn("send failed")
		return err
	}
	return nil
}

// ProcessMessages drains every buffered transport event and calls fn once per
// decoded application message. PlayerJoinAcceptance and PlayerJoinRejection
// are consumed here and reported through the callbacks instead.
func (c *Client) ProcessMessages(fn DispatchFunc) {
	for {
		ev, ok := c.host.Poll()
		if !ok {
			return
		}
		switch ev.Kind {
		case EventConnect:
			c.onConnect(ev.Peer)
		case EventDisconnect:
			c.onDisconnect(ev)
		case EventReceive:
			c.onReceive(ev, fn)
		}
	}
}

func (c *Client) onConnect(p Peer) {
	if c.state != StateConnecting {
		p.Disconnect(netconfig.DisconnectUnknown)
		return
	}
	c.server = p
	c.state = StateAwaitingJoinAccept
	c.log.WithField("server", p.RemoteAddr()).Info("connected to server")

	if err := c.SendToServer(c.join, netconfig.ChannelDefault, netconfig.Reliable); err != nil {
		c.lastError = fmt.Errorf("send join request: %w", err)
	}
}

// onDisconnect ignores events of sessions this client already tore down.
func (c *Client) onDisconnect(ev Event) {
	if ev.Peer == nil && c.state != StateConnecting {
		return
	}
	if ev.Peer != nil && (c.server == nil || ev.Peer.ID() != c.server.ID()) {
		return
	}
	if ev.Err != nil {
		c.lastError = ev.Err
	}
	c.log.WithFields(logrus.Fields{"reason": ev.Reason, "error": ev.Err}).Info("disconnected")
	c.reset()
	if c.callbacks.OnDisconnected != nil {
		c.callbacks.OnDisconnected(ev.Reason)
	}
}

func (c *Client) onReceive(ev Event, fn DispatchFunc) {
	if c.server == nil || ev.Peer.ID() != c.server.ID() {
		return
	}
	msg, err := messages.Decode(ev.Data)
	if err != nil {
		c.log.WithError(err).WithField("channel", ev.Channel).Warn("dropping message")
		return
	}

	switch m := msg.(type) {
	case messages.PlayerJoinAcceptance:
		c.serverSideID = m.ServerSideID
		c.state = StateJoined
		c.log.WithField("serverSideID", m.ServerSideID).Info("join accepted")
		if c.callbacks.OnJoined != nil {
			c.callbacks.OnJoined(m.ServerSideID)
		}
	case messages.PlayerJoinRejection:
		c.lastError = fmt.Errorf("join rejected: %s", m.Reason)
		c.log.WithField("reason", m.Reason).Warn("join rejected")
		c.server.Disconnect(netconfig.DisconnectRejected)
		c.reset()
		if c.callbacks.OnRejected != nil {
			c.callbacks.OnRejected(m.Reason)
		}
	default:
		if fn != nil {
			fn(Received{Message: msg, Channel: ev.Channel, Source: Source{Peer: ev.Peer}})
		}
	}
}

// Disconnect notifies the server and tears the session down. It does nothing
// when no session is open.
func (c *Client) Disconnect() {
	if c.state == StateDisconnected {
		return
	}
	if c.server != nil {
		c.server.Disconnect(netconfig.DisconnectPlayerLeaving)
	}
	c.reset()
	c.log.Info("disconnected from server")
}

func (c *Client) reset() {
	c.server = nil
	c.state = StateDisconnected
	c.serverSideID = 0
}

// IsConnected reports whether the transport session to the server is open.
func (c *Client) IsConnected() bool { return c.server != nil }

// Joined reports whether the server accepted the join request.
func (c *Client) Joined() bool { return c.state == StateJoined }

func (c *Client) State() ClientState { return c.state }

func (c *Client) LastError() error { return c.lastError }

// ServerSideID returns the slot assigned by the server. ok is false until the
// join is accepted.
func (c *Client) ServerSideID() (id uint8, ok bool) {
	return c.serverSideID, c.state == StateJoined
}
