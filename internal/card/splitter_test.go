package card

import (
	"strings"
	"testing"
)

// feedAll pushes deltas through a splitter and returns the concatenated
// relayed text plus the finish results.
func feedAll(deltas []string) (visible, tail string, payload []byte, found bool) {
	var s Splitter
	var sb strings.Builder
	for _, d := range deltas {
		sb.WriteString(s.Feed(d))
	}
	tail, payload, found = s.Finish()
	return sb.String(), tail, payload, found
}

func TestSplitterPlainText(t *testing.T) {
	visible, tail, _, found := feedAll([]string{"Hi", " there", ", keep going!"})
	if got := visible + tail; got != "Hi there, keep going!" {
		t.Errorf("text = %q", got)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestSplitterMarkerInOneDelta(t *testing.T) {
	visible, tail, payload, found := feedAll([]string{
		"Great job!" + Marker + `{"type":"insight"}`,
	})
	if visible+tail != "Great job!" {
		t.Errorf("text = %q", visible+tail)
	}
	if !found {
		t.Fatal("marker not found")
	}
	if string(payload) != `{"type":"insight"}` {
		t.Errorf("payload = %q", payload)
	}
}

func TestSplitterMarkerAcrossDeltas(t *testing.T) {
	// Marker split at every possible boundary.
	for cut := 1; cut < len(Marker); cut++ {
		visible, tail, payload, found := feedAll([]string{
			"done",
			Marker[:cut],
			Marker[cut:] + `{"a":1}`,
		})
		if visible+tail != "done" {
			t.Errorf("cut=%d: text = %q", cut, visible+tail)
		}
		if !found {
			t.Fatalf("cut=%d: marker not found", cut)
		}
		if string(payload) != `{"a":1}` {
			t.Errorf("cut=%d: payload = %q", cut, payload)
		}
	}
}

func TestSplitterFalseMarkerPrefix(t *testing.T) {
	// A newline followed by dashes that never completes the marker must be
	// released once it can no longer match.
	visible, tail, _, found := feedAll([]string{"scores: 3", "\n---", "2-1 final"})
	if got := visible + tail; got != "scores: 3\n---2-1 final" {
		t.Errorf("text = %q", got)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestSplitterHeldTailFlushedAtFinish(t *testing.T) {
	// Stream ends while the tail still looks like a marker prefix.
	visible, tail, _, found := feedAll([]string{"trailing", "\n---json"})
	if visible+tail != "trailing\n---json" {
		t.Errorf("text = %q", visible+tail)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestSplitterPayloadSpansDeltas(t *testing.T) {
	visible, tail, payload, found := feedAll([]string{
		"ok" + Marker + `{"type":`,
		`"insight",`,
		`"title":"t","body":"b"}`,
	})
	if visible+tail != "ok" {
		t.Errorf("text = %q", visible+tail)
	}
	if !found {
		t.Fatal("marker not found")
	}
	want := `{"type":"insight","title":"t","body":"b"}`
	if string(payload) != want {
		t.Errorf("payload = %q, want %q", payload, want)
	}
}

func TestSplitterContentIsVerbatim(t *testing.T) {
	var s Splitter
	deltas := []string{"Nice!", Marker[:4], Marker[4:], `{"type":"insight"}`}
	for _, d := range deltas {
		s.Feed(d)
	}
	want := "Nice!" + Marker + `{"type":"insight"}`
	if s.Content() != want {
		t.Errorf("Content() = %q, want %q", s.Content(), want)
	}
}
