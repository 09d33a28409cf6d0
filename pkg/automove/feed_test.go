package automove_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"unicode/utf16"

	"automove/pkg/automove"

	"github.com/google/go-cmp/cmp"
)

func TestParseFeedMessage(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		want   automove.PartialPosition
		wantOK bool
	}{
		{
			name:   "position",
			frame:  `{"t":"fen","v":1,"d":{"fen":"` + afterE4 + `","lm":"e2e4"}}`,
			want:   automove.PartialPosition{FEN: afterE4, MoveIndex: 1},
			wantOK: true,
		},
		{
			name:   "no type field",
			frame:  `{"v":0,"d":{"fen":"` + startPlacement + `"}}`,
			want:   automove.PartialPosition{FEN: startPlacement, MoveIndex: 0},
			wantOK: true,
		},
		{name: "clock frame", frame: `{"t":"clock","d":{"white":30}}`},
		{name: "null index", frame: `{"t":"fen","v":null,"d":{"fen":"` + afterE4 + `"}}`},
		{name: "string index", frame: `{"t":"fen","v":"1","d":{"fen":"` + afterE4 + `"}}`},
		{name: "numeric fen", frame: `{"t":"fen","v":1,"d":{"fen":12}}`},
		{name: "empty fen", frame: `{"t":"fen","v":1,"d":{"fen":""}}`},
		{name: "no payload", frame: `{"t":"fen","v":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := automove.ParseFeedMessage([]byte(tc.frame))
			if err != nil {
				t.Fatalf("ParseFeedMessage: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("partial mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if _, _, err := automove.ParseFeedMessage([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestFeedReader_FiltersFrames(t *testing.T) {
	capture := strings.Join([]string{
		`{"t":"crowd","d":{"white":true}}`,
		`{"t":"fen","v":0,"d":{"fen":"` + startPlacement + `"}}`,
		``,
		`garbage`,
		`{"t":"fen","v":1,"d":{"fen":"` + afterE4 + `"}}`,
	}, "\n")
	reader := automove.NewFeedReader(strings.NewReader(capture))

	var got []automove.PartialPosition
	for {
		p, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, p)
	}
	want := []automove.PartialPosition{
		{FEN: startPlacement, MoveIndex: 0},
		{FEN: afterE4, MoveIndex: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("positions mismatch (-want +got):\n%s", diff)
	}
	if reader.Skipped() != 1 {
		t.Fatalf("Skipped = %d, want 1", reader.Skipped())
	}
}

// TestFeedReader_UTF16Capture reads a capture saved as UTF-16LE with a BOM.
func TestFeedReader_UTF16Capture(t *testing.T) {
	frame := `{"t":"fen","v":2,"d":{"fen":"` + startPlacement + `"}}` + "\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(frame)) {
		_ = binary.Write(&buf, binary.LittleEndian, u)
	}

	p, err := automove.NewFeedReader(&buf).Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.FEN != startPlacement || p.MoveIndex != 2 {
		t.Fatalf("partial = %+v", p)
	}
}

func TestEncodeMove(t *testing.T) {
	data, err := automove.EncodeMove("e2e4")
	if err != nil {
		t.Fatalf("EncodeMove: %v", err)
	}
	want := `{"t":"move","d":{"u":"e2e4","b":1,"l":1000,"a":1}}`
	if string(data) != want {
		t.Fatalf("frame = %s, want %s", data, want)
	}
	if _, err := automove.EncodeMove(automove.NoMove); err == nil {
		t.Fatal("expected error encoding NoMove")
	}

	var out bytes.Buffer
	if err := automove.WriteMove(&out, "e7e8q"); err != nil {
		t.Fatalf("WriteMove: %v", err)
	}
	if !strings.HasSuffix(out.String(), "\n") || !strings.Contains(out.String(), `"u":"e7e8q"`) {
		t.Fatalf("WriteMove wrote %q", out.String())
	}
}
