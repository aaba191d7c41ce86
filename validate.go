package connector

import (
	"fmt"
	"os"
	"path"
	"strings"
)

const parquetExtension = ".parquet"

// ValidationResult is the outcome of Validate. Reason is empty for valid
// configurations.
type ValidationResult struct {
	Valid  bool
	Reason string
}

func invalid(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks cfg without opening any stream. The rules are applied in
// order and the first failing one is reported:
//   - the source must be set,
//   - a local source must exist,
//   - the path must end in .parquet (case-insensitive),
//   - the scheme must be file, http or https.
func Validate(cfg *Configuration) ValidationResult {
	if cfg == nil || cfg.Source() == "" {
		return invalid("source is required")
	}

	u, err := parseLocation(cfg.Source())
	if err != nil {
		return invalid("source is malformed: %v", err)
	}

	if u.Scheme == "file" {
		st, err := os.Stat(u.Path)
		if err != nil {
			return invalid("source file %q does not exist", u.Path)
		}
		if st.IsDir() {
			return invalid("source %q is a directory", u.Path)
		}
	}

	if !strings.EqualFold(path.Ext(u.Path), parquetExtension) {
		return invalid("source %q does not end in %s", cfg.Source(), parquetExtension)
	}

	switch u.Scheme {
	case "file", "http", "https":
	default:
		return invalid("scheme %q is not allowed, use file, http or https", u.Scheme)
	}

	return ValidationResult{Valid: true}
}
