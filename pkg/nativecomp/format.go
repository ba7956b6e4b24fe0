package nativecomp

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// Format identifies the in-process compression codec.
type Format int

const (
	Gzip Format = iota
	Zstd
)

var formatName = map[Format]string{
	Gzip: "gzip",
	Zstd: "zstd",
}

var formatValue = util.InvertMap(formatName)

var formatSuffix = map[Format]string{
	Gzip: ".gz",
	Zstd: ".zst",
}

func (f Format) String() string {
	if s, ok := formatName[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Suffix returns the filename suffix appended to compressed outputs.
func (f Format) Suffix() string {
	return formatSuffix[f]
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatValue[s]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown compression format: %q", s)
}

func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Level selects the speed/ratio tradeoff of the codec.
type Level int

const (
	Default Level = iota
	Fastest
	Better
	Best
)

var levelName = map[Level]string{
	Default: "default",
	Fastest: "fastest",
	Better:  "better",
	Best:    "best",
}

var levelValue = util.InvertMap(levelName)

func (l Level) String() string {
	if s, ok := levelName[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a string to a Level. The empty string maps to Default.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return Default, nil
	}
	if l, ok := levelValue[s]; ok {
		return l, nil
	}
	return 0, fmt.Errorf("unknown compression level: %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
