package realtime

import "encoding/json"

// Message is the JSON frame pushed to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}
