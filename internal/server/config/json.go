package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/flagx"
	"github.com/dmitrijs2005/aiexplorer/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON configuration file.
// Durations use timex.Duration so both "15m" and integer nanoseconds work.
// It is only a DTO: values are copied onto Config by parseJson.
type JsonConfig struct {
	HTTPAddr       string   `json:"http_addr"`
	GRPCHealthAddr string   `json:"grpc_health_addr"`
	CORSOrigins    []string `json:"cors_origins"`
	LogLevel       string   `json:"log_level"`

	DatabaseDSN      string         `json:"database_dsn"`
	DBMaxOpenConns   int            `json:"db_max_open_conns"`
	DBAcquireTimeout timex.Duration `json:"db_acquire_timeout"`

	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`

	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`

	SearchServerURL        string         `json:"search_server_url"`
	ImageServerURL         string         `json:"image_server_url"`
	ProviderAPIKey         string         `json:"provider_api_key"`
	SearchToolName         string         `json:"search_tool"`
	ImageToolName          string         `json:"image_tool"`
	ProviderMaxConcurrency int            `json:"provider_max_concurrency"`
	SearchTimeout          timex.Duration `json:"search_timeout"`
	ImageTimeout           timex.Duration `json:"image_timeout"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys absent from the file keep their current values. An unreadable
// file or invalid JSON panics: a half-applied configuration is worse than none.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setDuration(&config.DBAcquireTimeout, c.DBAcquireTimeout)

	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)

	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminPassword, c.AdminPassword)

	setString(&config.SearchServerURL, c.SearchServerURL)
	setString(&config.ImageServerURL, c.ImageServerURL)
	setString(&config.ProviderAPIKey, c.ProviderAPIKey)
	setString(&config.SearchToolName, c.SearchToolName)
	setString(&config.ImageToolName, c.ImageToolName)
	setInt(&config.ProviderMaxConcurrency, c.ProviderMaxConcurrency)
	setDuration(&config.SearchTimeout, c.SearchTimeout)
	setDuration(&config.ImageTimeout, c.ImageTimeout)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
