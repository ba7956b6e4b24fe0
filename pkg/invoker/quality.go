package invoker

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// Quality represents the external tool's quality/size trade-off profile.
// The values mirror ghostscript's -dPDFSETTINGS presets.
type Quality string

const (
	Screen   Quality = "screen"
	Ebook    Quality = "ebook"
	Printer  Quality = "printer"
	Prepress Quality = "prepress"
)

var qualityToString = map[Quality]string{
	Screen:   "screen",
	Ebook:    "ebook",
	Printer:  "printer",
	Prepress: "prepress",
}

var stringToQuality map[string]Quality

func init() {
	stringToQuality = util.InvertMap(qualityToString)
}

func (q Quality) String() string {
	if str, ok := qualityToString[q]; ok {
		return str
	}
	return string(Printer)
}

// ParseQuality parses a string into a Quality.
// It defaults to printer quality if the string is empty.
func ParseQuality(s string) (Quality, error) {
	if s == "" {
		return Printer, nil
	}
	if q, ok := stringToQuality[s]; ok {
		return q, nil
	}
	return "", fmt.Errorf("invalid quality: %q. Must be 'screen', 'ebook', 'printer', or 'prepress'", s)
}

// MarshalJSON implements the json.Marshaler interface.
func (q Quality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("quality should be a string, got %s", data)
	}
	quality, err := ParseQuality(s)
	if err != nil {
		return err
	}
	*q = quality
	return nil
}
