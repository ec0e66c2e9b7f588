// Package appid resolves the bffagent identity, falling back to the copy embedded in the binary.
package appid

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/bffagent/bffagent/internal/assets/appidentity"
)

var registerErr error

func init() {
	registerErr = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get returns the process identity. FULMEN_APP_IDENTITY_PATH and a .fulmen/app.yaml
// found from the working directory take precedence over the embedded copy.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := appidentity.Get(ctx)
	if err != nil && registerErr != nil {
		return nil, fmt.Errorf("%w (embedded identity unusable: %v)", err, registerErr)
	}
	return identity, err
}

// ViperEnvPrefix returns the env prefix without its trailing underscore; viper adds the separator itself.
func ViperEnvPrefix(identity *appidentity.Identity) string {
	if identity == nil {
		return ""
	}
	return strings.TrimSuffix(identity.EnvPrefix, "_")
}
