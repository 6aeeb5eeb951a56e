package auth

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadClientConfig reads the OAuth client-secret JSON downloaded from
// Google Cloud and returns the oauth2 configuration for the requested
// scopes. Both the "installed" and "web" credential shapes are
// accepted. The file is provided externally and is read-only to this
// system.
func LoadClientConfig(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("missing OAuth client secret file %s: %w", path, err)
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("malformed OAuth client secret file %s: %w", path, err)
	}
	return conf, nil
}
