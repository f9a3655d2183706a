package models

// Stream record types for the respond relay. Each SSE record is one JSON
// object framed as "data: <json>\n\n" with a type discriminant.
const (
	StreamEventDelta          = "delta"           // text fragment, apply in receipt order
	StreamEventCTA            = "cta"             // call-to-action label for the response
	StreamEventStructuredData = "structured_data" // fully-formed card payload (at most one wins)
	StreamEventEnd            = "end"             // stream done; persisted state is durable
)

// StreamRecord is one relay event. Only the field matching Type is set:
// Content for delta, Label for cta, Data for structured_data, none for end.
type StreamRecord struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Label   string      `json:"label,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewDeltaRecord creates a delta record carrying a text fragment.
func NewDeltaRecord(content string) StreamRecord {
	return StreamRecord{Type: StreamEventDelta, Content: content}
}

// NewCTARecord creates a cta record carrying a short action label.
func NewCTARecord(label string) StreamRecord {
	return StreamRecord{Type: StreamEventCTA, Label: label}
}

// NewStructuredDataRecord creates a structured_data record carrying a parsed
// card payload.
func NewStructuredDataRecord(data interface{}) StreamRecord {
	return StreamRecord{Type: StreamEventStructuredData, Data: data}
}

// NewEndRecord creates the terminal record of a stream.
func NewEndRecord() StreamRecord {
	return StreamRecord{Type: StreamEventEnd}
}
