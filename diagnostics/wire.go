package diagnostics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"

	"github.com/lukaspfisterch/dbl-observer/canon"
	"github.com/lukaspfisterch/dbl-observer/digest"
	"github.com/lukaspfisterch/dbl-observer/obserr"
	"github.com/lukaspfisterch/dbl-observer/obslog"
)

// WireEvent is the trace pipeline's unit of work: an ObservedEvent's
// identity fields plus the derived canon_len/digest and the diagnostics
// labels attached to it.
type WireEvent struct {
	EventID     int64
	Source      string
	Artifact    string
	Payload     canon.Value
	CanonLen    int
	Digest      string
	Diagnostics []Label
}

// strictWireRecord mirrors the wire trace's exact field set for decoding:
// encoding/json rejects unknown fields only when DisallowUnknownFields is
// set on the Decoder, which is how unknown fields end up rejecting the
// record.
type strictWireRecord struct {
	EventID     int64           `json:"event_id"`
	Source      string          `json:"source"`
	Artifact    string          `json:"artifact"`
	Payload     json.RawMessage `json:"payload"`
	CanonLen    int             `json:"canon_len"`
	Digest      string          `json:"digest"`
	Diagnostics []string        `json:"diagnostics"`
}

// rawRecord mirrors the raw trace pipeline input: just the identity fields,
// no derived data.
type rawRecord struct {
	EventID  int64           `json:"event_id"`
	Source   string          `json:"source"`
	Artifact string          `json:"artifact"`
	Payload  json.RawMessage `json:"payload"`
}

// ReadStrictWire parses a strict v1 wire trace: one JSON object per line,
// with exactly the fields event_id/source/artifact/payload/canon_len/
// digest/diagnostics. Any unrecognized field or malformed line fails the
// whole read with obserr.InvalidInput.
func ReadStrictWire(r io.Reader) ([]WireEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []WireEvent
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		dec.UseNumber()

		var rec strictWireRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, obserr.InvalidInput("malformed strict wire record", err)
		}

		payload, err := decodePayload(rec.Payload)
		if err != nil {
			return nil, err
		}

		labels := make([]Label, len(rec.Diagnostics))
		for i, s := range rec.Diagnostics {
			labels[i] = Label(s)
		}

		out = append(out, WireEvent{
			EventID:     rec.EventID,
			Source:      rec.Source,
			Artifact:    rec.Artifact,
			Payload:     payload,
			CanonLen:    rec.CanonLen,
			Digest:      rec.Digest,
			Diagnostics: labels,
		})
	}
	if err := scanner.Err(); err != nil {
		obslog.Error("diagnostics", "failed reading strict wire trace", err, nil)
		return nil, obserr.IOError("failed reading strict wire trace", err)
	}
	return out, nil
}

// ReadRaw parses the raw trace pipeline input: one {event_id, source,
// artifact, payload} object per line, with canon_len/digest freshly
// computed from the payload.
func ReadRaw(r io.Reader) ([]WireEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []WireEvent
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec rawRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, obserr.InvalidInput("malformed raw trace record", err)
		}

		payload, err := decodePayload(rec.Payload)
		if err != nil {
			return nil, err
		}

		d, canonLen, err := digest.OfValue(payload)
		if err != nil {
			return nil, err
		}

		out = append(out, WireEvent{
			EventID:  rec.EventID,
			Source:   rec.Source,
			Artifact: rec.Artifact,
			Payload:  payload,
			CanonLen: canonLen,
			Digest:   d,
		})
	}
	if err := scanner.Err(); err != nil {
		obslog.Error("diagnostics", "failed reading raw trace", err, nil)
		return nil, obserr.IOError("failed reading raw trace", err)
	}
	return out, nil
}

func decodePayload(raw json.RawMessage) (canon.Value, error) {
	if len(raw) == 0 {
		return canon.Null(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return canon.Value{}, obserr.InvalidInput("malformed payload JSON", err)
	}
	return canon.Marshal(v)
}

// Write renders trace in the strict v1 wire format: one JSON object per
// line. Identity field escaping is delegated to jsonenc.AppendString (the
// same byte-appending string encoder the canonicalizer's leaf cases are
// grounded on); only payload bytes come from canon.Encode, since the
// payload alone carries the canonicalizer's ASCII-only/sorted-key
// contract.
func Write(w io.Writer, trace []WireEvent) error {
	buf := make([]byte, 0, 512)
	for _, we := range trace {
		buf = buf[:0]
		buf = append(buf, '{')

		buf = append(buf, `"event_id":`...)
		buf = strconv.AppendInt(buf, we.EventID, 10)

		buf = append(buf, `,"source":`...)
		buf = jsonenc.AppendString(buf, we.Source)

		buf = append(buf, `,"artifact":`...)
		buf = jsonenc.AppendString(buf, we.Artifact)

		buf = append(buf, `,"payload":`...)
		payloadBytes, err := canon.Encode(we.Payload)
		if err != nil {
			return err
		}
		buf = append(buf, payloadBytes...)

		buf = append(buf, `,"canon_len":`...)
		buf = strconv.AppendInt(buf, int64(we.CanonLen), 10)

		buf = append(buf, `,"digest":`...)
		buf = jsonenc.AppendString(buf, we.Digest)

		buf = append(buf, `,"diagnostics":[`...)
		for i, l := range we.Diagnostics {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = jsonenc.AppendString(buf, string(l))
		}
		buf = append(buf, ']', '}', '\n')

		if _, err := w.Write(buf); err != nil {
			return obserr.IOError("failed writing wire trace", err)
		}
	}
	return nil
}
