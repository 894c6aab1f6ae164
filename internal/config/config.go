// Package config loads the demo relying party's configuration: which
// authorization server to trust, how this client authenticates to it,
// and which local keys back private_key_jwt and DPoP.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/oidcrp/oidcrp/pkg/clientauth"
	"github.com/oidcrp/oidcrp/pkg/jose"
)

// ServerConfig holds the demo's own callback-listener settings.
type ServerConfig struct {
	Scheme string
	Host   string
	Port   string
}

// URL returns the demo server's own base URL, for building its
// redirect_uri.
func (s *ServerConfig) URL() string {
	host := s.Host
	includePort := func() bool {
		if s.Port == "" {
			return false
		}
		if s.Scheme == "http" {
			return s.Port != "80"
		}
		return s.Port != "443"
	}()
	if includePort {
		host = fmt.Sprintf("%s:%s", host, s.Port)
	}
	return fmt.Sprintf("%s://%s", s.Scheme, host)
}

// RPConfig holds the relying party's registered identity and policy
// at the authorization server it talks to.
type RPConfig struct {
	Issuer                  string
	DiscoveryMode           string
	ClientID                string
	ClientSecret            string
	TokenEndpointAuthMethod string
	PrivateKeyFile          string
	RedirectPath            string
	Scopes                  []string

	UseDPoP    bool
	DPoPKeyFile string
}

// Config is the demo's top-level configuration.
type Config struct {
	Server Server
	RP     RPConfig
	Remain map[string]interface{} `mapstructure:",remain"`
}

// Server aliases ServerConfig for viper's field-name matching.
type Server = ServerConfig

var (
	// Current is the process-wide configuration, populated by Load.
	Current Config

	// PrivateKey and DPoPKey are materialized by Load from the files
	// named in Current.RP, generating fresh keys on first run.
	PrivateKey *jose.Key
	DPoPKey    *jose.Key

	configDir string
)

func setDefaults() {
	viper.SetDefault("server", map[string]interface{}{
		"scheme": "http",
		"host":   "localhost",
		"port":   "8000",
	})
	viper.SetDefault("rp.clientid", "demo-client")
	viper.SetDefault("rp.clientsecret", "demo-secret")
	viper.SetDefault("rp.discoverymode", "oidc")
	viper.SetDefault("rp.tokenendpointauthmethod", string(clientauth.MethodClientSecretBasic))
	viper.SetDefault("rp.redirectpath", "/callback")
	viper.SetDefault("rp.scopes", []string{"openid", "profile"})
	viper.SetDefault("rp.usedpop", false)
}

// Load reads the demo's configuration file (falling back to defaults
// and a generated client key pair when none is found) and populates
// Current.
func Load() error {
	viper.AddConfigPath("/etc/oidcrp/")
	viper.AddConfigPath("$HOME/.oidcrp")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()

	viper.SetEnvPrefix("oidcrp")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var dir string
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("no configuration file found, running with defaults")
			d, derr := configurationDirectory()
			if derr != nil {
				return derr
			}
			dir = d
		} else {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		dir = filepath.Dir(viper.ConfigFileUsed())
	}
	configDir = dir

	if err := viper.Unmarshal(&Current); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}

	if Current.RP.PrivateKeyFile == "" {
		Current.RP.PrivateKeyFile = filepath.Join(configDir, "client_key.json")
	}
	if Current.RP.DPoPKeyFile == "" {
		Current.RP.DPoPKeyFile = filepath.Join(configDir, "dpop_key.json")
	}

	key, err := loadOrGenerateKey(Current.RP.PrivateKeyFile, "client-signing")
	if err != nil {
		return err
	}
	PrivateKey = key

	if Current.RP.UseDPoP {
		dpopKey, err := loadOrGenerateKey(Current.RP.DPoPKeyFile, "dpop")
		if err != nil {
			return err
		}
		dpopKey.MarkExtractable()
		DPoPKey = dpopKey
	}

	return nil
}

func configurationDirectory() (string, error) {
	const etcDir = "/etc/oidcrp"
	if _, err := os.Stat(etcDir); err == nil {
		return etcDir, nil
	} else if os.IsNotExist(err) {
		if err := os.Mkdir(etcDir, 0o770); err == nil {
			return etcDir, nil
		}
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".oidcrp")
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	} else if os.IsNotExist(err) {
		if err := os.Mkdir(dir, 0o770); err != nil {
			return "", err
		}
		return dir, nil
	}
	return "", err
}

// loadOrGenerateKey reads filename as a single JWK, generating and
// persisting a fresh EC P-256 key pair on first run.
func loadOrGenerateKey(filename, kid string) (*jose.Key, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		key, err := jose.GenerateECKeyPair(jose.AlgES256, kid)
		if err != nil {
			return nil, fmt.Errorf("generating %s key: %w", kid, err)
		}
		if err := saveKey(filename, key); err != nil {
			return nil, err
		}
		return key, nil
	}
	return loadKey(filename)
}

func loadKey(filename string) (*jose.Key, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", filename, err)
	}
	key, err := jose.ParseJWK(b)
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", filename, err)
	}
	return key, nil
}

func saveKey(filename string, key *jose.Key) error {
	b, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling key: %w", err)
	}
	if err := os.WriteFile(filename, b, 0o600); err != nil {
		return fmt.Errorf("writing key file %s: %w", filename, err)
	}
	return nil
}
