package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange = errors.New("malformed range header")
	ErrRangeOutside   = errors.New("range outside media")
)

// ByteRange is an inclusive span of a media file.
type ByteRange struct {
	First int64
	Last  int64
}

func (b ByteRange) Length() int64 { return b.Last - b.First + 1 }

func (b ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.First, b.Last, size)
}

// ParseByteRange reads a Range header against a file of size bytes. Only the
// first span of a multi-range request is honoured. A missing header yields
// nil, nil.
func ParseByteRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	span, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	span, _, _ = strings.Cut(span, ",")
	first, last, ok := strings.Cut(strings.TrimSpace(span), "-")
	if !ok {
		return nil, ErrMalformedRange
	}

	var br ByteRange
	switch {
	case first == "":
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		br = ByteRange{First: max(size-n, 0), Last: size - 1}
	default:
		start, err := strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return nil, ErrMalformedRange
		}
		br = ByteRange{First: start, Last: size - 1}
		if last != "" {
			end, err := strconv.ParseInt(last, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
			br.Last = end
		}
	}

	if br.First > br.Last || br.First >= size {
		return nil, ErrRangeOutside
	}
	br.Last = min(br.Last, size-1)
	return &br, nil
}
