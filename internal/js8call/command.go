package js8call

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Command types understood by the JS8Call TCP API.
const (
	TypeSendMessage = "TX.SEND_MESSAGE"
	TypeSetFreq     = "RIG.SET_FREQ"
)

// Command is one JSON line sent to the endpoint.
type Command struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Params any    `json:"params"`
}

// SendParams are the params of TX.SEND_MESSAGE. FREQ 0 keeps the rig's current
// frequency; SPEED 0 is the normal submode.
type SendParams struct {
	Freq  int64 `json:"FREQ"`
	Speed int   `json:"SPEED"`
}

// SendMessageCommand builds a TX.SEND_MESSAGE command.
func SendMessageCommand(text string, freqHz int64) Command {
	if freqHz < 0 {
		freqHz = 0
	}
	return Command{Type: TypeSendMessage, Value: text, Params: SendParams{Freq: freqHz}}
}

// SetFreqCommand builds a RIG.SET_FREQ command. The frequency travels as a
// decimal string.
func SetFreqCommand(hz int64) Command {
	return Command{Type: TypeSetFreq, Value: strconv.FormatInt(hz, 10), Params: struct{}{}}
}

// Encode renders c as a single UTF-8 JSON line terminated by '\n'.
func Encode(c Command) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoder.Encode appends the trailing newline.
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Directed formats a message addressed to a callsign ("CALL: text").
func Directed(call, text string) string {
	return call + ": " + text
}
