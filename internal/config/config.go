package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is where Load looks for the configuration file when the caller
// passes no explicit path.
const DefaultPath = "config.json"

type Config struct {
	Environment         string
	ServerHost          string
	ServerPort          int
	WebSvcPort          int
	Username            string
	Password            string
	Account             string
	UseWebSvc           bool
	UseSocket           bool
	UsePhantom          bool
	DialTimeout         time.Duration
	RequestTimeout      time.Duration
	EncryptionKeyBase64 string
	LogLevel            string
}

// fileConfig mirrors the database.openqm block of config.json.
type fileConfig struct {
	ServerIP              string `mapstructure:"server_ip"`
	ServerPort            int    `mapstructure:"server_port"`
	WebSvcPort            int    `mapstructure:"websvc_port"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	Account               string `mapstructure:"account"`
	UseWebSvc             bool   `mapstructure:"use_websvc"`
	UseSocket             bool   `mapstructure:"use_socket"`
	UsePhantom            bool   `mapstructure:"use_phantom"`
	DialTimeoutSeconds    int    `mapstructure:"dial_timeout_seconds"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		ServerIP:              "10.1.34.103",
		ServerPort:            4243,
		WebSvcPort:            8080,
		Username:              "QMADMIN",
		Password:              "",
		Account:               "EMAILORG",
		UseWebSvc:             true,
		UseSocket:             false,
		UsePhantom:            true,
		DialTimeoutSeconds:    5,
		RequestTimeoutSeconds: 30,
	}
}

// Load reads config.json (keys nested under database.openqm), applies
// environment overrides and returns the effective configuration. A missing
// or unreadable file is not an error: the documented defaults apply and a
// warning is printed, so a bad deployment still comes up talking to the
// default server.
func Load(path string) (*Config, error) {
	env := os.Getenv("MVMAIL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	def := defaultFileConfig()
	v.SetDefault("database.openqm.server_ip", def.ServerIP)
	v.SetDefault("database.openqm.server_port", def.ServerPort)
	v.SetDefault("database.openqm.websvc_port", def.WebSvcPort)
	v.SetDefault("database.openqm.username", def.Username)
	v.SetDefault("database.openqm.password", def.Password)
	v.SetDefault("database.openqm.account", def.Account)
	v.SetDefault("database.openqm.use_websvc", def.UseWebSvc)
	v.SetDefault("database.openqm.use_socket", def.UseSocket)
	v.SetDefault("database.openqm.use_phantom", def.UsePhantom)
	v.SetDefault("database.openqm.dial_timeout_seconds", def.DialTimeoutSeconds)
	v.SetDefault("database.openqm.request_timeout_seconds", def.RequestTimeoutSeconds)
	v.SetDefault("logging.level", "info")

	fc := def
	logLevel := "info"
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: could not read %s, using default configuration: %v\n", path, err)
	} else {
		if err := v.UnmarshalKey("database.openqm", &fc); err != nil {
			fmt.Printf("Warning: could not parse %s, using default configuration: %v\n", path, err)
			fc = def
		}
		logLevel = v.GetString("logging.level")
	}

	config := &Config{
		Environment:         env,
		ServerHost:          getEnvOrDefault("MVMAIL_SERVER_HOST", fc.ServerIP),
		ServerPort:          fc.ServerPort,
		WebSvcPort:          fc.WebSvcPort,
		Username:            getEnvOrDefault("MVMAIL_USERNAME", fc.Username),
		Password:            getEnvOrDefault("MVMAIL_PASSWORD", fc.Password),
		Account:             getEnvOrDefault("MVMAIL_ACCOUNT", fc.Account),
		UseWebSvc:           fc.UseWebSvc,
		UseSocket:           fc.UseSocket,
		UsePhantom:          fc.UsePhantom,
		DialTimeout:         time.Duration(fc.DialTimeoutSeconds) * time.Second,
		RequestTimeout:      time.Duration(fc.RequestTimeoutSeconds) * time.Second,
		EncryptionKeyBase64: os.Getenv("MVMAIL_ENCRYPTION_KEY_BASE64"),
		LogLevel:            getEnvOrDefault("MVMAIL_LOG_LEVEL", logLevel),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("server host is required")
	}

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port is not a valid port number")
	}

	if c.WebSvcPort < 1 || c.WebSvcPort > 65535 {
		return fmt.Errorf("websvc_port is not a valid port number")
	}

	if c.EncryptionKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
		if err != nil {
			return fmt.Errorf("MVMAIL_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("MVMAIL_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
		}
	}

	return nil
}

// WebSvcURL returns the endpoint of the HTTP bridging service.
func (c *Config) WebSvcURL() string {
	return fmt.Sprintf("http://%s:%d/qm/websvc", c.ServerHost, c.WebSvcPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
