package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/dogstack/internal/flagx"
)

// Duration accepts either a string like "30s" or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = dur
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the corresponding Config fields alone.
type JsonConfig struct {
	BackendURL              string   `json:"backend_url"`
	AnonKey                 string   `json:"anon_key"`
	StorageURL              string   `json:"storage_url"`
	StorageBackend          string   `json:"storage_backend"`
	S3                      S3Json   `json:"s3"`
	RedirectURL             string   `json:"redirect_url"`
	CallbackListenAddr      *string  `json:"callback_listen_addr"`
	DatabasePath            string   `json:"database_path"`
	LogLevel                string   `json:"log_level"`
	ForegroundCheckInterval Duration `json:"foreground_check_interval"`
}

type S3Json struct {
	Endpoint      string `json:"endpoint"`
	Region        string `json:"region"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Bucket        string `json:"bucket"`
	PublicBaseURL string `json:"public_base_url"`
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Without such a flag it does nothing. Read or decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.BackendURL, jc.BackendURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.StorageURL, jc.StorageURL)
	setString(&cfg.StorageBackend, jc.StorageBackend)
	setString(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3.SecretKey)
	setString(&cfg.S3.Bucket, jc.S3.Bucket)
	setString(&cfg.S3.PublicBaseURL, jc.S3.PublicBaseURL)
	setString(&cfg.RedirectURL, jc.RedirectURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)

	// An explicit empty string turns the callback listener off.
	if jc.CallbackListenAddr != nil {
		cfg.CallbackListenAddr = *jc.CallbackListenAddr
	}
	if jc.ForegroundCheckInterval.Duration != 0 {
		cfg.ForegroundCheckInterval = jc.ForegroundCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
