package automove

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// feedMessage is the subset of an inbound feed frame we care about.
type feedMessage struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
	D json.RawMessage `json:"d"`
}

type feedPayload struct {
	FEN *string `json:"fen"`
}

// ParseFeedMessage extracts a partial position from one feed frame. ok is
// false for frames that are valid JSON but carry no position: a frame is a
// position only when d.fen is a string and v is a number.
func ParseFeedMessage(data []byte) (PartialPosition, bool, error) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PartialPosition{}, false, err
	}
	if len(msg.V) == 0 || len(msg.D) == 0 || string(msg.V) == "null" {
		return PartialPosition{}, false, nil
	}
	var index float64
	if err := json.Unmarshal(msg.V, &index); err != nil {
		return PartialPosition{}, false, nil
	}
	var payload feedPayload
	if err := json.Unmarshal(msg.D, &payload); err != nil || payload.FEN == nil || *payload.FEN == "" {
		return PartialPosition{}, false, nil
	}
	return PartialPosition{FEN: *payload.FEN, MoveIndex: int(index)}, true, nil
}

// FeedReader yields partial positions from a stream of JSON feed frames,
// one per line. Captures saved as UTF-16 or with a UTF-8 BOM are decoded
// transparently.
type FeedReader struct {
	scanner *bufio.Scanner
	skipped int
}

// NewFeedReader wraps r.
func NewFeedReader(r io.Reader) *FeedReader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &FeedReader{scanner: scanner}
}

// Next returns the next position frame, skipping other frames and
// malformed lines. It returns io.EOF at the end of the stream.
func (f *FeedReader) Next() (PartialPosition, error) {
	for f.scanner.Scan() {
		line := bytes.TrimSpace(f.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		partial, ok, err := ParseFeedMessage(line)
		if err != nil {
			f.skipped++
			continue
		}
		if ok {
			return partial, nil
		}
	}
	if err := f.scanner.Err(); err != nil {
		return PartialPosition{}, err
	}
	return PartialPosition{}, io.EOF
}

// Skipped counts lines that were not valid JSON.
func (f *FeedReader) Skipped() int {
	return f.skipped
}

// Constant auxiliary fields the feed expects on an outbound move frame.
const (
	moveFrameType = "move"
	moveFrameB    = 1
	moveFrameL    = 1000
	moveFrameA    = 1
)

// MoveFrame is the outbound feed frame carrying a move.
type MoveFrame struct {
	T string        `json:"t"`
	D MoveFrameData `json:"d"`
}

// MoveFrameData is the payload of a MoveFrame.
type MoveFrameData struct {
	U string `json:"u"`
	B int    `json:"b"`
	L int    `json:"l"`
	A int    `json:"a"`
}

// EncodeMove renders m as an outbound feed frame.
func EncodeMove(m Move) ([]byte, error) {
	if m == NoMove {
		return nil, errors.New("cannot encode empty move")
	}
	return json.Marshal(MoveFrame{
		T: moveFrameType,
		D: MoveFrameData{U: string(m), B: moveFrameB, L: moveFrameL, A: moveFrameA},
	})
}

// WriteMove writes the frame for m followed by a newline.
func WriteMove(w io.Writer, m Move) error {
	data, err := EncodeMove(m)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return err
	}
	return nil
}
