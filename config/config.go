package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig                `yaml:"database"`
	Kafka    KafkaConfig                   `yaml:"kafka"`
	Redis    RedisConfig                   `yaml:"redis"`
	Jira     JiraConfig                    `yaml:"jira"`
	Stores   map[string]models.StoreConfig `yaml:"stores"`
	Dropbox  DropboxConfig                 `yaml:"dropbox"`
	Rela     ServiceConfig                 `yaml:"rela"`
	Cubicasa ServiceConfig                 `yaml:"cubicasa"`
	Geocode  ServiceConfig                 `yaml:"geocode"`
	API      APIConfig                     `yaml:"api"`
	Worker   WorkerConfig                  `yaml:"worker"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Topic string `yaml:"topic"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// JiraConfig holds one account shared by every tracker instance.
type JiraConfig struct {
	Email              string               `yaml:"email"`
	Token              string               `yaml:"-"`
	Instances          map[int]JiraInstance `yaml:"instances"`
	RateLimitPerMinute int                  `yaml:"rate_limit_per_minute"`
	LinkType           string               `yaml:"link_type"`
	LinksPerSecond     float64              `yaml:"links_per_second"`
}

type JiraInstance struct {
	BaseURL string `yaml:"base_url"`
}

// DropboxConfig keys refresh tokens by storage instance.
type DropboxConfig struct {
	APIURL    string                    `yaml:"api_url"`
	Root      string                    `yaml:"root"`
	AppKey    string                    `yaml:"-"`
	AppSecret string                    `yaml:"-"`
	Accounts  map[int]DropboxAccountRef `yaml:"accounts"`
}

type DropboxAccountRef struct {
	RefreshToken string `yaml:"-"`
}

type ServiceConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

type APIConfig struct {
	HTTPAddr    string `yaml:"http_addr"`
	SwaggerPath string `yaml:"swagger_path"`
}

type WorkerConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	_ = godotenv.Load()
	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnv fills secrets, which never live in the YAML file.
func (c *Config) applyEnv() {
	c.Jira.Email = getEnv("JIRA_USER_EMAIL", c.Jira.Email)
	c.Jira.Token = os.Getenv("JIRA_API_TOKEN")
	c.Rela.APIKey = os.Getenv("RELA_API_KEY")
	c.Cubicasa.APIKey = os.Getenv("CUBICASA_API_KEY")
	c.Geocode.APIKey = os.Getenv("GEOCODING_API_KEY")
	c.Dropbox.AppKey = os.Getenv("DROPBOX_APP_KEY")
	c.Dropbox.AppSecret = os.Getenv("DROPBOX_APP_SECRET")

	for n, acc := range c.Dropbox.Accounts {
		acc.RefreshToken = os.Getenv("DROPBOX_" + strconv.Itoa(n) + "_REFRESH_TOKEN")
		c.Dropbox.Accounts[n] = acc
	}
	for id, s := range c.Stores {
		s.ID = id
		c.Stores[id] = s
	}
}

func (c *Config) validate() error {
	if len(c.Stores) == 0 {
		return fmt.Errorf("config has no stores")
	}
	for _, id := range c.StoreIDs() {
		s := c.Stores[id]
		if _, ok := c.Jira.Instances[s.TrackerInstance]; !ok {
			return fmt.Errorf("store %q: unknown tracker instance %d", id, s.TrackerInstance)
		}
		if s.BoardID == "" {
			return fmt.Errorf("store %q: board_id is required", id)
		}
	}
	return nil
}

// StoreIDs returns the configured store ids in a stable order.
func (c *Config) StoreIDs() []string {
	ids := make([]string, 0, len(c.Stores))
	for id := range c.Stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (k KafkaConfig) TopicName() string {
	if k.Topic == "" {
		return "ordersync.events"
	}
	return k.Topic
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
