package payments

import "os"

// Config carries everything the provider clients need. Built once in the
// process bootstrap and injected; the clients hold no module-global state.
type Config struct {
	APISecret  string
	StoreID    string
	ChannelKey string
	APIBase    string

	InicisAPIKey string
	InicisMID    string
	InicisHost   string
	InicisTest   bool
}

const (
	defaultAPIBase    = "https://api.portone.io"
	defaultInicisHost = "https://iniapi.inicis.com"
)

// ConfigFromEnv reads provider configuration. Three secret key names are
// accepted for compatibility with older deployments; first non-empty wins.
func ConfigFromEnv() Config {
	secret := os.Getenv("PORTONE_V2_API_SECRET")
	if secret == "" {
		secret = os.Getenv("PORTONE_API_SECRET")
	}
	if secret == "" {
		secret = os.Getenv("PORTONE_SECRET_KEY")
	}

	cfg := Config{
		APISecret:    secret,
		StoreID:      os.Getenv("PORTONE_STORE_ID"),
		ChannelKey:   os.Getenv("PORTONE_CHANNEL_KEY"),
		APIBase:      envOr("PORTONE_API_BASE", defaultAPIBase),
		InicisAPIKey: os.Getenv("INICIS_API_KEY"),
		InicisMID:    envOr("INICIS_MID", "INIpayTest"),
		InicisHost:   envOr("INICIS_API_HOST", defaultInicisHost),
		InicisTest:   os.Getenv("INICIS_LIVE") == "",
	}
	return cfg
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
