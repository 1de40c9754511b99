package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		WorkDir          string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Billing  BillingConfig

		SendgridAPIKey string
		RollbarToken   string

		Stripe StripeConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	BillingConfig struct {
		// ApplianceSurcharge is the flat monthly amount added for tenants
		// with additional registered appliances.
		ApplianceSurcharge decimal.Decimal
	}

	StripeConfig struct {
		SecretKey string
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from defaults, an optional
// `config/.env.<env>` file and `<ENV>_`-prefixed environment variables.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Tahanan")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "dr8e+2#ah^c7f)5q&=yg0m*x3(u!p4_z9jw6%kb$snv1t-lo@i")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", "0.0.0.0")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "tahanan")
	conf.SetDefault("database.user", "tahanan")
	conf.SetDefault("database.password", "tahanan")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("billing.applianceSurcharge", "150")

	conf.SetDefault("sendgridAPIKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("stripe.secretKey", "")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	surcharge, err := decimal.NewFromString(conf.GetString("billing.applianceSurcharge"))
	if err != nil {
		log.Fatalf("config: invalid billing.applianceSurcharge: %v", err)
	}

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         strings.EqualFold(env, "TEST"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		WorkDir:          wd,

		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetString("server.port"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Billing: BillingConfig{
			ApplianceSurcharge: surcharge,
		},

		SendgridAPIKey: conf.GetString("sendgridAPIKey"),
		RollbarToken:   conf.GetString("rollbarToken"),
		Stripe: StripeConfig{
			SecretKey: conf.GetString("stripe.secretKey"),
		},
	}
}
