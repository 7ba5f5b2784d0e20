package codemode

import (
	"encoding/json"
	"strings"
)

// ResultMarker is the textual prefix the generated program prints in
// front of its structured outcome payload.
const ResultMarker = "CODEMODE_RESULT:"

// resultPayload is the JSON object following the marker.
type resultPayload struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
	Error   string      `json:"error"`
}

// findResultPayload locates the LAST occurrence of the result marker in
// blob and returns the candidate JSON text following it. A process may
// print several markers while iterating; the most recent one is
// authoritative. The second return reports whether a marker was found
// at all; the returned text may still fail to parse.
//
// The candidate is cut with a bracket-balanced scan (string and escape
// aware), so trailing non-JSON on the same line is tolerated while
// nested braces inside the object are handled correctly.
func findResultPayload(blob string) (string, bool) {
	idx := strings.LastIndex(blob, ResultMarker)
	if idx < 0 {
		return "", false
	}

	rest := strings.TrimLeft(blob[idx+len(ResultMarker):], " \t\r\n")
	if !strings.HasPrefix(rest, "{") {
		// Marker with no object: classified as a parse failure, not a
		// missing marker.
		return rest, true
	}
	return balancedObject(rest), true
}

// balancedObject returns the prefix of s spanning the first complete
// JSON object. If the object never closes, the whole string is returned
// and left for the JSON decoder to reject.
func balancedObject(s string) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}

// classifyPayload parses a candidate payload and converts it into a
// Result. The log is attached by the caller.
func classifyPayload(raw, log string) Result {
	var p resultPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Result{
			Log:     log,
			Success: false,
			Error:   "failed to parse result: " + err.Error(),
		}
	}

	if p.Success {
		return Result{
			Output:  p.Result,
			Log:     log,
			Success: true,
		}
	}

	msg := p.Error
	if msg == "" {
		msg = "unknown error"
	}
	return Result{
		Log:     log,
		Success: false,
		Error:   msg,
	}
}
