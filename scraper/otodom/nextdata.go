package otodom

import (
	"encoding/json"
	"strconv"
	"strings"
)

// nextData mirrors the slice of the embedded JSON document this package
// cares about. The real payload is far larger; everything not listed here
// is ignored, and everything listed is optional.
type nextData struct {
	Props struct {
		PageProps struct {
			Ad struct {
				Target *adTarget `json:"target"`
				Images []adImage `json:"images"`
			} `json:"ad"`
		} `json:"pageProps"`
	} `json:"props"`
}

type adTarget struct {
	Price    flexFloat `json:"Price"`
	Area     flexFloat `json:"Area"`
	RoomsNum flexInt   `json:"Rooms_num"`
}

type adImage struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// flexFloat decodes a JSON number or a numeric string. Anything else
// decodes to 0, the sentinel for "unknown" — a single malformed field must
// not fail the whole record.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat(parseNumeric(data))
	return nil
}

// flexInt decodes a JSON number, a numeric string, or a single-element
// list of either. Malformed input decodes to 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
			*n = 0
			return nil
		}
		data = items[0]
	}
	*n = flexInt(parseNumeric(data))
	return nil
}

func parseNumeric(data []byte) float64 {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return 0
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
