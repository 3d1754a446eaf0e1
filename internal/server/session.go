package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sonaq/sonaq/internal/config"
	"github.com/sonaq/sonaq/internal/observe"
	"github.com/sonaq/sonaq/pkg/audio"
	"github.com/sonaq/sonaq/pkg/decode"
	"github.com/sonaq/sonaq/pkg/feature"
	"github.com/sonaq/sonaq/pkg/scorer"
	"github.com/sonaq/sonaq/pkg/symbol"
)

// sessionState tracks the handler's protocol lifecycle.
type sessionState int

const (
	stateIdle sessionState = iota
	stateReceiving
	stateEnding
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateReceiving:
		return "receiving"
	case stateEnding:
		return "ending"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// session binds one websocket connection to one feature pipeline and one
// decode goroutine. The connection's read loop (run) and the decode loop
// are the session's only two goroutines; the pipeline is their sole shared
// state. run always joins the decode goroutine before returning, so the
// final_result/speech_end pair is the last thing written on a clean session.
type session struct {
	id      string
	conn    *websocket.Conn
	cfg     *config.Config
	scorer  scorer.Scorer
	table   *symbol.Table
	metrics *observe.Metrics
	log     *slog.Logger

	state      sessionState
	pipe       *feature.Pipeline
	dec        *decode.Decoder
	decodeDone chan struct{}

	// status is the terminal session status reported to metrics. Written
	// only by the run goroutine. decodeStatus is its decode-goroutine
	// counterpart, written before decodeDone closes and merged by run after
	// the join.
	status       string
	decodeStatus string
}

func newSession(conn *websocket.Conn, cfg *config.Config, sc scorer.Scorer, table *symbol.Table, metrics *observe.Metrics) *session {
	return &session{
		id:      uuid.NewString(),
		conn:    conn,
		cfg:     cfg,
		scorer:  sc,
		table:   table,
		metrics: metrics,
		status:  "completed",
	}
}

// run drives the session until it reaches stateClosed or the client stops
// sending. It owns the connection: no other goroutine reads from it, and
// after an end signal only the decode goroutine writes to it.
func (s *session) run(ctx context.Context) {
	ctx, span := observe.StartSpan(ctx, "session")
	defer span.End()

	s.log = observe.Logger(ctx).With("session_id", s.id)
	s.log.Info("session opened")

	start := time.Now()
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer func() {
		s.metrics.RecordSessionEnd(ctx, s.status, time.Since(start).Seconds())
		s.log.Info("session closed", "status", s.status, "duration", time.Since(start))
	}()

	readFailed := false
	for s.state == stateIdle || s.state == stateReceiving {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			// Connection dropped mid-session: treat as an implicit end so
			// the decode goroutine terminates.
			s.log.Warn("session read failed", "err", err, "state", s.state)
			readFailed = true
			s.state = stateClosed
			break
		}

		switch typ {
		case websocket.MessageText:
			s.onControl(ctx, data)
		case websocket.MessageBinary:
			s.onAudio(ctx, data)
		}
	}

	s.joinDecode()
	if s.status == "completed" {
		switch {
		case s.decodeStatus != "":
			s.status = s.decodeStatus
		case readFailed:
			s.status = "transport_error"
		}
	}
	s.conn.Close(websocket.StatusNormalClosure, "")
}

// onControl parses and dispatches one JSON control message.
func (s *session) onControl(ctx context.Context, data []byte) {
	var msg signalMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Signal == "" {
		s.fail(ctx, "wrong message header", "malformed_control")
		return
	}

	switch msg.Signal {
	case signalStart:
		if s.state != stateIdle {
			s.fail(ctx, "unexpected start signal", "duplicate_start")
			return
		}
		if err := s.onSpeechStart(ctx); err != nil {
			s.log.Error("failed to start decode", "err", err)
			s.fail(ctx, "failed to initialise decoder", "decoder_init")
		}
	case signalEnd:
		if s.state != stateReceiving {
			s.fail(ctx, "unexpected end signal", "end_before_start")
			return
		}
		s.log.Debug("speech end signal received")
		s.pipe.SetInputFinished()
		s.state = stateEnding
	default:
		s.fail(ctx, "unexpected signal type", "unknown_signal")
	}
}

// onSpeechStart allocates the pipeline and decoder, acknowledges readiness,
// and launches the decode goroutine.
func (s *session) onSpeechStart(ctx context.Context) error {
	pipe, err := feature.New(s.cfg.Feature.Pipeline())
	if err != nil {
		return err
	}
	dec, err := decode.NewDecoder(pipe, &timedScorer{inner: s.scorer, metrics: s.metrics}, s.table, decode.Options{
		BeamWidth:  s.cfg.Decode.BeamWidth,
		ChunkSize:  s.cfg.Decode.ChunkSize,
		BlankID:    s.cfg.Decode.BlankID,
		ExcludeIDs: s.cfg.Decode.ExcludeIDs,
	})
	if err != nil {
		return err
	}

	s.log.Info("speech start signal received, reading audio")
	if err := s.writeJSON(ctx, serverReady()); err != nil {
		return err
	}

	s.pipe = pipe
	s.dec = dec
	s.decodeDone = make(chan struct{})
	s.state = stateReceiving
	go s.decodeLoop(ctx)
	return nil
}

// onAudio feeds one binary PCM payload into the pipeline.
func (s *session) onAudio(ctx context.Context, data []byte) {
	if s.state != stateReceiving {
		s.fail(ctx, "start signal is expected before binary data", "audio_before_start")
		return
	}
	samples := audio.DecodePCM16(data)
	s.log.Debug("audio received", "samples", len(samples))
	s.pipe.Accept(samples)
	s.metrics.AudioSeconds.Add(ctx, float64(len(samples))/float64(s.cfg.Feature.SampleRate))
}

// decodeLoop is the session's decode goroutine: one Step per chunk, one
// partial result per step, and the final_result/speech_end pair at the end.
func (s *session) decodeLoop(ctx context.Context) {
	defer close(s.decodeDone)

	ctx, span := observe.StartSpan(ctx, "decode")
	defer span.End()

	prevFrames := 0
	for {
		stepStart := time.Now()
		finished, err := s.dec.Step(ctx)
		s.metrics.StepDuration.Record(ctx, time.Since(stepStart).Seconds())

		consumed := s.dec.NumFramesDecoded()
		s.metrics.DecodedFrames.Add(ctx, int64(consumed-prevFrames))
		prevFrames = consumed

		if err != nil {
			// Scorer failures are fatal to the session; no retry. Closing
			// the connection unblocks the read loop so the session tears
			// down promptly.
			s.log.Error("decode step failed", "err", err)
			s.decodeStatus = "scorer_error"
			_ = s.writeJSON(ctx, failure("decoding failed"))
			s.conn.Close(websocket.StatusInternalError, "decoding failed")
			return
		}
		if finished {
			s.log.Info("final result", "content", s.dec.Result())
			if err := s.writeJSON(ctx, finalResult(s.dec.Result())); err != nil {
				return
			}
			_ = s.writeJSON(ctx, speechEnd())
			return
		}
		s.log.Debug("partial result", "content", s.dec.Result())
		if err := s.writeJSON(ctx, partialResult(s.dec.Result())); err != nil {
			return
		}
	}
}

// fail reports a protocol violation to the client and moves the session to
// stateClosed. The read loop exits on the state change and joins the decode
// goroutine before the connection is torn down.
func (s *session) fail(ctx context.Context, msg, kind string) {
	s.log.Warn("protocol violation", "kind", kind, "state", s.state)
	s.metrics.RecordProtocolError(ctx, kind)
	s.status = "protocol_error"
	_ = s.writeJSON(ctx, failure(msg))
	// Closing here, before the decode goroutine is joined, guarantees no
	// result messages can follow a failure on the wire.
	s.conn.Close(websocket.StatusPolicyViolation, "protocol violation")
	s.state = stateClosed
}

// joinDecode guarantees the decode goroutine has exited before the session
// is torn down. On abnormal paths the pipeline may not have seen an end
// signal yet; SetInputFinished is idempotent and is the defined way to make
// the decode goroutine terminate.
func (s *session) joinDecode() {
	if s.decodeDone == nil {
		return
	}
	s.pipe.SetInputFinished()
	<-s.decodeDone
}

func (s *session) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}
