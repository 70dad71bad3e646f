package models

import "encoding/json"

// ModelContent is the stable, serializable replacement for a backend-native
// content repr (spec.md §9 "Serialization of function_call / tool
// messages"). A RoleFuncCall or RoleTool Message stores its payload as the
// parts below rather than a language-specific string round trip.
type ModelContent struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// PartKind tags which variant of the Part union is populated.
type PartKind string

const (
	PartText             PartKind = "text"
	PartFunctionCall     PartKind = "function_call"
	PartFunctionResponse PartKind = "function_response"
	PartBytes            PartKind = "bytes"
)

// Part is a tagged union of the content a ModelContent can carry. Exactly
// one of the Text/Call/Response/Bytes fields is meaningful, selected by Kind.
type Part struct {
	Kind PartKind `json:"kind"`

	Text string `json:"text,omitempty"`

	Call *FunctionCall `json:"call,omitempty"`

	Response *FunctionResponse `json:"response,omitempty"`

	// MimeType and Data hold an attached binary part (e.g. an image),
	// detected during history formatting from a Message.FileRef.
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// TextPart constructs a text Part.
func TextPart(text string) Part { return Part{Kind: PartText, Text: text} }

// FunctionCallPart constructs a function-call Part.
func FunctionCallPart(call FunctionCall) Part { return Part{Kind: PartFunctionCall, Call: &call} }

// FunctionResponsePart constructs a function-response Part.
func FunctionResponsePart(resp FunctionResponse) Part {
	return Part{Kind: PartFunctionResponse, Response: &resp}
}

// BytesPart constructs a binary attachment Part.
func BytesPart(mimeType string, data []byte) Part {
	return Part{Kind: PartBytes, MimeType: mimeType, Data: data}
}

// Marshal serializes the content to its stable on-the-wire JSON form.
func (c ModelContent) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
