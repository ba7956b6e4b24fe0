package invoker

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// Engine represents the compression engine driving each file.
type Engine int

const (
	// External shells out to the configured external tool (ghostscript) once per file.
	External Engine = iota
	// Gzip compresses files in-process with the parallel gzip writer.
	Gzip
	// Zstd compresses files in-process with the zstd writer.
	Zstd
)

var engineToString = map[Engine]string{External: "external", Gzip: "gzip", Zstd: "zstd"}
var stringToEngine = map[string]Engine{}

func init() {
	stringToEngine = util.InvertMap(engineToString)
}

// String returns the string representation of an Engine.
func (e Engine) String() string {
	if str, ok := engineToString[e]; ok {
		return str
	}
	return fmt.Sprintf("unknown_engine(%d)", e)
}

// ParseEngine parses a string and returns the corresponding Engine.
func ParseEngine(s string) (Engine, error) {
	if engine, ok := stringToEngine[s]; ok {
		return engine, nil
	}
	return 0, fmt.Errorf("invalid engine: %q. Must be 'external', 'gzip' or 'zstd'", s)
}

// MarshalJSON implements the json.Marshaler interface for Engine.
func (e Engine) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Engine.
func (e *Engine) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("engine should be a string, got %s", data)
	}

	engine, err := ParseEngine(s)
	if err != nil {
		return err
	}
	*e = engine
	return nil
}
