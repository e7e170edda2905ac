// Package config provides the structures and loader for the service
// configuration, read from a YAML file with environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top level settings container.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RabbitMQURL             string `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Runner                  `yaml:"runner"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection holds the cache connection settings.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken holds the token signing settings.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Runner configures the remote command executor. Mode selects the
// strategy: "local" spawns the deployment tool on this host, "ssh" runs
// it on a fixed remote host over an SSH session.
type Runner struct {
	Mode           string        `yaml:"mode" env-default:"local"`
	Binary         string        `yaml:"binary" env-default:"dokku"`
	CommandTimeout time.Duration `yaml:"command_timeout" env-default:"60s"`
	SSHHost        string        `yaml:"ssh_host"`
	SSHUser        string        `yaml:"ssh_user" env-default:"dokku"`
	SSHKeyFile     string        `yaml:"ssh_key_file"`
}

// Scheduler configures the reconciliation sweep cadence.
type Scheduler struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"24h"`
}

// MustLoad reads the config pointed to by CONFIG_PATH and exits the
// process on any failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RabbitMQURL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Runner:\n"+
			"  Mode: %s\n"+
			"  Binary: %s\n"+
			"  CommandTimeout: %s\n"+
			"  SSHHost: %s\n"+
			"Scheduler:\n"+
			"  SweepInterval: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.RabbitMQURL,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Mode,
		c.Binary,
		c.CommandTimeout,
		c.SSHHost,
		c.SweepInterval,
	)
}
