package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Deadlines for monitor connections. Dashboards are long-lived; the read
// deadline only bounds abandoned sockets.
const (
	writeTimeout = 10 * time.Second
	readTimeout  = 5 * time.Minute
)

func writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// WriteProgress sends one progress frame to a dashboard client.
func WriteProgress(conn *websocket.Conn, frame ProgressFrame) error {
	return writeJSON(conn, frame)
}

// WritePong answers a client ping.
func WritePong(conn *websocket.Conn) error {
	return writeJSON(conn, PongResponse{Event: EventPong})
}

// WriteError sends a typed error frame.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return writeJSON(conn, ErrorResponse{Event: EventError, Error: errMsg})
}

// ReadEnvelope reads the next client message into an action envelope.
func ReadEnvelope(conn *websocket.Conn) (RequestEnvelope, error) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var env RequestEnvelope
	err := conn.ReadJSON(&env)
	return env, err
}
