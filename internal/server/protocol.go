// Package server implements the websocket session layer of Sonaq: an
// acceptor that upgrades incoming connections and a per-session handler that
// binds one connection to one feature pipeline and decode loop.
//
// The wire protocol interleaves JSON control messages with binary audio on
// one connection:
//
//	client → {"signal":"start"}
//	server → {"status":"ok","type":"server_ready"}
//	client → binary little-endian 16-bit mono PCM, any chunking
//	server → {"status":"ok","type":"partial_result","content":...}  (per chunk)
//	client → {"signal":"end"}
//	server → {"status":"ok","type":"final_result","content":...}
//	server → {"status":"ok","type":"speech_end"}
//
// Any protocol violation is answered with {"status":"failed","message":...}
// and the connection is closed.
package server

const (
	signalStart = "start"
	signalEnd   = "end"

	typeServerReady   = "server_ready"
	typePartialResult = "partial_result"
	typeFinalResult   = "final_result"
	typeSpeechEnd     = "speech_end"
)

// signalMessage is the inbound control message shape.
type signalMessage struct {
	Signal string `json:"signal"`
}

// statusMessage is an outbound control message without a transcript payload.
type statusMessage struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// resultMessage carries a partial or final transcript. Content is always
// present, even when the transcript is still empty.
type resultMessage struct {
	Status  string `json:"status"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// errorMessage is the outbound shape for protocol violations and fatal
// decode errors.
type errorMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func serverReady() statusMessage {
	return statusMessage{Status: "ok", Type: typeServerReady}
}

func speechEnd() statusMessage {
	return statusMessage{Status: "ok", Type: typeSpeechEnd}
}

func partialResult(text string) resultMessage {
	return resultMessage{Status: "ok", Type: typePartialResult, Content: text}
}

func finalResult(text string) resultMessage {
	return resultMessage{Status: "ok", Type: typeFinalResult, Content: text}
}

func failure(msg string) errorMessage {
	return errorMessage{Status: "failed", Message: msg}
}
