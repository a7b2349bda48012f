package assets

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

//go:embed index.css
var defaultStylesheet []byte

// DefaultStylesheet returns a copy of the built-in stylesheet
func DefaultStylesheet() []byte {
	return append([]byte(nil), defaultStylesheet...)
}

// LoadStylesheet reads the stylesheet at path. When the file does not exist
// the built-in stylesheet is written there and returned.
func LoadStylesheet(path string) ([]byte, error) {
	css, err := os.ReadFile(path)
	if err == nil {
		return css, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}

	if err := os.WriteFile(path, defaultStylesheet, 0o644); err != nil {
		log.WithFields(log.Fields{
			"path":  path,
			"error": err,
		}).Warn("Could not write default stylesheet")
	}
	return DefaultStylesheet(), nil
}
