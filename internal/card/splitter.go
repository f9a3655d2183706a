package card

import (
	"strings"
)

// Splitter incrementally separates a streamed assistant response into the
// text that may be relayed as deltas and the card payload bytes that follow
// the marker. Token boundaries are arbitrary, so the marker can arrive
// spread across any number of deltas; the splitter holds back the longest
// tail that could still turn out to be a marker prefix.
type Splitter struct {
	raw     strings.Builder // everything fed, verbatim (persisted content)
	payload strings.Builder // bytes after the marker
	carry   string          // held-back tail, possibly a marker prefix
	found   bool
}

// Feed consumes one delta and returns the text that is now safe to relay.
// Once the marker has been seen, Feed returns "" and routes everything to
// the payload buffer.
func (s *Splitter) Feed(delta string) string {
	s.raw.WriteString(delta)

	if s.found {
		s.payload.WriteString(delta)
		return ""
	}

	text := s.carry + delta
	if idx := strings.Index(text, Marker); idx >= 0 {
		s.found = true
		s.carry = ""
		s.payload.WriteString(text[idx+len(Marker):])
		return text[:idx]
	}

	hold := longestMarkerPrefix(text)
	s.carry = text[len(text)-hold:]
	return text[:len(text)-hold]
}

// Finish flushes the splitter at end of stream. tail is held-back text that
// never completed a marker and must still be relayed; payload is the raw
// JSON bytes when the marker was seen.
func (s *Splitter) Finish() (tail string, payload []byte, found bool) {
	tail = s.carry
	s.carry = ""
	if !s.found {
		return tail, nil, false
	}
	return tail, []byte(s.payload.String()), true
}

// Content returns the full raw content fed so far, marker and payload
// included. This is what gets persisted.
func (s *Splitter) Content() string {
	return s.raw.String()
}

// longestMarkerPrefix returns the length of the longest suffix of text that
// is a proper prefix of the marker.
func longestMarkerPrefix(text string) int {
	max := len(Marker) - 1
	if len(text) < max {
		max = len(text)
	}
	for l := max; l > 0; l-- {
		if strings.HasSuffix(text, Marker[:l]) {
			return l
		}
	}
	return 0
}
