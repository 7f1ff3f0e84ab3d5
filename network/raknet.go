package network

import (
	"io"
	"net"

	"github.com/sandertv/go-raknet"
	"github.com/sirupsen/logrus"
)

// NewRakNetHost returns a UDP substrate backed by RakNet. RakNet frames every
// packet as reliable-ordered; unreliable sends are upgraded.
func NewRakNetHost(log logrus.FieldLogger) *ConnHost {
	return newConnHost(log, "raknet", dialRakNet, listenRakNet)
}

type rakConn struct {
	*raknet.Conn
}

func (c rakConn) WritePacket(b []byte) error {
	_, err := c.Write(b)
	return err
}

func (c rakConn) RemoteAddr() string { return c.Conn.RemoteAddr().String() }

func dialRakNet(address string) (packetConn, error) {
	conn, err := raknet.Dial(address)
	if err != nil {
		return nil, err
	}
	return rakConn{conn}, nil
}

func listenRakNet(address string, accept func(packetConn)) (io.Closer, net.Addr, error) {
	l, err := raknet.Listen(address)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			accept(rakConn{c.(*raknet.Conn)})
		}
	}()
	return l, l.Addr(), nil
}
