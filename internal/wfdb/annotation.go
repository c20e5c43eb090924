package wfdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/verte-zerg/ecgprep/internal/model"
)

// Pseudo-annotation codes of the MIT annotation format.
const (
	codeSkip = 59
	codeNum  = 60
	codeSub  = 61
	codeChn  = 62
	codeAux  = 63
)

// symbols maps annotation codes to their mnemonic symbols. Codes without a
// standard symbol map to "".
var symbols = [...]string{
	0: " ", 1: "N", 2: "L", 3: "R", 4: "a", 5: "V", 6: "F", 7: "J", 8: "A", 9: "S",
	10: "E", 11: "j", 12: "/", 13: "Q", 14: "~", 15: "", 16: "|", 17: "", 18: "s", 19: "T",
	20: "*", 21: "D", 22: "\"", 23: "=", 24: "p", 25: "B", 26: "^", 27: "t", 28: "+", 29: "u",
	30: "?", 31: "!", 32: "[", 33: "]", 34: "e", 35: "n", 36: "@", 37: "x", 38: "f", 39: "(",
	40: ")", 41: "r",
}

// Symbol returns the mnemonic for an annotation code.
func Symbol(code int) string {
	if code >= 0 && code < len(symbols) {
		return symbols[code]
	}
	return fmt.Sprintf("[%d]", code)
}

// Code returns the annotation code for a mnemonic, or -1.
func Code(symbol string) int {
	for i, s := range symbols {
		if s != "" && s == symbol {
			return i
		}
	}
	return -1
}

// ReadAnnotations reads the annotation file path + "." + ext.
func ReadAnnotations(path, ext string) (*model.AnnotationSet, error) {
	f, err := os.Open(path + "." + ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only annotations.
			_ = cerr
		}
	}()

	samples, codes, err := DecodeAnnotations(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding annotations: %w", err)
	}
	set := &model.AnnotationSet{
		Record:  filepath.Base(path),
		Ext:     ext,
		Samples: samples,
		Symbols: make([]string, len(codes)),
	}
	for i, c := range codes {
		set.Symbols[i] = Symbol(c)
	}
	return set, nil
}

// DecodeAnnotations decodes an MIT-format annotation stream into sample
// positions and annotation codes.
func DecodeAnnotations(r io.Reader) ([]int, []int, error) {
	br := bufio.NewReader(r)
	var (
		samples []int
		codes   []int
		t       int64
		word    [2]byte
	)
	for {
		if _, err := io.ReadFull(br, word[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return samples, codes, nil
			}
			return nil, nil, fmt.Errorf("error reading annotation word: %w", err)
		}
		w := binary.LittleEndian.Uint16(word[:])
		code := int(w >> 10)
		interval := int(w & 0x03ff)

		switch {
		case code == 0 && interval == 0:
			return samples, codes, nil
		case code == codeSkip:
			var long [4]byte
			if _, err := io.ReadFull(br, long[:]); err != nil {
				return nil, nil, fmt.Errorf("error reading skip interval: %w", err)
			}
			// PDP-11 long: high word first, each word little-endian.
			hi := uint32(binary.LittleEndian.Uint16(long[0:2]))
			lo := uint32(binary.LittleEndian.Uint16(long[2:4]))
			t += int64(int32(hi<<16 | lo))
		case code == codeNum, code == codeSub, code == codeChn:
			// Modifiers of the previous annotation.
		case code == codeAux:
			n := interval + interval%2
			if _, err := br.Discard(n); err != nil {
				return nil, nil, fmt.Errorf("error skipping aux string: %w", err)
			}
		case code == 0:
			t += int64(interval)
		default:
			t += int64(interval)
			samples = append(samples, int(t))
			codes = append(codes, code)
		}
	}
}

// EncodeAnnotations writes annotations in MIT format. Samples must be
// non-decreasing. Intervals longer than 1023 samples are written with a skip
// pseudo-annotation.
func EncodeAnnotations(w io.Writer, samples []int, codes []int) error {
	if len(samples) != len(codes) {
		return fmt.Errorf("got %d samples and %d codes", len(samples), len(codes))
	}
	bw := bufio.NewWriter(w)
	prev := 0
	for i, s := range samples {
		delta := s - prev
		if delta < 0 {
			return fmt.Errorf("annotation %d: sample %d precedes %d", i, s, prev)
		}
		if codes[i] <= 0 || codes[i] >= codeSkip {
			return fmt.Errorf("annotation %d: invalid code %d", i, codes[i])
		}
		if delta > 0x03ff {
			long := uint32(int32(delta))
			if err := writeWord(bw, codeSkip<<10); err != nil {
				return err
			}
			if err := writeWord(bw, uint16(long>>16)); err != nil {
				return err
			}
			if err := writeWord(bw, uint16(long)); err != nil {
				return err
			}
			delta = 0
		}
		if err := writeWord(bw, uint16(codes[i]<<10|delta)); err != nil {
			return err
		}
		prev = s
	}
	if err := writeWord(bw, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func writeWord(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}
