package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mspro-labs/weekly-shop/internal/retry"
)

// ErrMissingKey is returned by Validate when a required setting is empty.
var ErrMissingKey = errors.New("missing required config key")

// AppConfig holds infrastructure config from standard env vars
type AppConfig struct {
	DBPath     string
	ConfigPath string // Path to the YAML config file
}

// SiteConfig holds everything needed to shop at the target site (from YAML)
type SiteConfig struct {
	ShoppingListPath string      `yaml:"shopping_list_path"`
	Username         string      `yaml:"username"`
	Password         string      `yaml:"password"`
	Retry            RetryConfig `yaml:"retry"`
	Browser          Browser     `yaml:"browser"`
	Match            Match       `yaml:"match"`
	Notify           Notify      `yaml:"notify"`
	LoginURL         string      `yaml:"login_url"`
	Selectors        Selectors   `yaml:"selectors"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	IntervalMS  int `yaml:"interval_ms"`
}

type Browser struct {
	Bin      string `yaml:"bin"` // Empty means let rod download/locate one
	Headless bool   `yaml:"headless"`
}

// Match tunes how a search result is chosen for a shopping-list item.
// A zero threshold disables semantic matching.
type Match struct {
	SemanticThreshold float32 `yaml:"semantic_threshold"`
}

// Notify configures the emailed report. An empty SMTPServer disables it.
type Notify struct {
	SMTPServer   string   `yaml:"smtp_server"`
	SMTPPort     int      `yaml:"smtp_port"`
	EmailAddress string   `yaml:"email_address"`
	Password     string   `yaml:"password"`
	To           []string `yaml:"to"`
	OnlyMissing  bool     `yaml:"only_missing"` // Skip the mail when the basket is complete
}

func (n Notify) Enabled() bool {
	return n.SMTPServer != "" && len(n.To) > 0
}

type Selectors struct {
	// Login
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	LoginSubmit string `yaml:"login_submit"`

	// Emptying the trolley
	EmptyTrolleyLink  string `yaml:"empty_trolley_link"`
	ConfirmButton     string `yaml:"confirm_button"`
	ConfirmButtonText string `yaml:"confirm_button_text"`
	DeleteTrolleyItem string `yaml:"delete_trolley_item"`

	// Search & add
	SearchInput   string `yaml:"search_input"`
	SearchSubmit  string `yaml:"search_submit"`
	ProductLister string `yaml:"product_lister"`
	Product       string `yaml:"product"`
	ProductName   string `yaml:"product_name"`
	Quantity      string `yaml:"quantity"`
	AddButton     string `yaml:"add_button"`

	// Full trolley view
	FullTrolleyLink   string `yaml:"full_trolley_link"`
	BasketProduct     string `yaml:"basket_product"`
	BasketProductLink string `yaml:"basket_product_link"`
	BasketQuantity    string `yaml:"basket_quantity"`

	// Checkout
	Checkout string `yaml:"checkout"`
}

// GetAppConfig reads basic infrastructure settings from environment variables.
// A .env file in the working directory is loaded first if present.
func GetAppConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	dbPath := os.Getenv("DB_PATH")
	configPath := os.Getenv("CONFIG_PATH")

	// Set defaults if not provided
	if dbPath == "" {
		dbPath = "./local-data/shop.db"
	}
	if configPath == "" {
		configPath = "config.yaml"
	}

	return AppConfig{
		DBPath:     dbPath,
		ConfigPath: configPath,
	}, nil
}

// DefaultSiteConfig returns the retailer's markup as of the last working run.
// Values from the YAML file override these one key at a time.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Retry: RetryConfig{
			MaxAttempts: 10,
			IntervalMS:  500,
		},
		Browser:  Browser{Headless: false},
		Notify:   Notify{SMTPPort: 587},
		LoginURL: "https://www.sainsburys.co.uk/webapp/wcs/stores/servlet/LogonView?catalogId=10122&langId=44&storeId=10151",
		Selectors: Selectors{
			Username:    `[name="logonId"]`,
			Password:    `[name="logonPassword"]`,
			LoginSubmit: "input.button.process",

			EmptyTrolleyLink:  "#emptyTrolleyLink",
			ConfirmButton:     ".button",
			ConfirmButtonText: "Empty trolley",
			DeleteTrolleyItem: `a[class='repressive delete']`,

			SearchInput:   "#search",
			SearchSubmit:  `[name="searchSubmit"]`,
			ProductLister: "#productLister",
			Product:       ".product",
			ProductName:   ".productNameAndPromotions h3",
			Quantity:      `[name="quantity"]`,
			AddButton:     `[name="Add"]`,

			FullTrolleyLink:   ".callToAction",
			BasketProduct:     ".productContainer",
			BasketProductLink: "a",
			BasketQuantity:    ".inTrolley",

			Checkout: "#deliveryInfoPanel a",
		},
	}
}

// LoadSiteConfig reads the YAML file on top of the defaults and applies
// SHOP_USERNAME / SHOP_PASSWORD overrides.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	cfg, err := ParseSiteConfig(data)
	if err != nil {
		return nil, err
	}
	if err := mergeLocal(cfg, path); err != nil {
		return nil, err
	}

	if u := os.Getenv("SHOP_USERNAME"); u != "" {
		cfg.Username = u
	}
	if p := os.Getenv("SHOP_PASSWORD"); p != "" {
		cfg.Password = p
	}
	if p := os.Getenv("SMTP_PASSWORD"); p != "" {
		cfg.Notify.Password = p
	}

	return cfg, nil
}

// LocalPath returns the machine-local override file for path,
// e.g. config.yaml -> config.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// mergeLocal applies the non-zero keys of the local override file, if any.
// Zero values (false, 0, "") in the override cannot unset a key.
func mergeLocal(cfg *SiteConfig, path string) error {
	local := LocalPath(path)
	data, err := os.ReadFile(local)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read local config at '%s': %w", local, err)
	}

	var override SiteConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse local config: %w", err)
	}
	if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge local config: %w", err)
	}
	log.Printf("Merged local config overrides from %s", local)
	return nil
}

// ParseSiteConfig decodes YAML over DefaultSiteConfig.
func ParseSiteConfig(data []byte) (*SiteConfig, error) {
	cfg := DefaultSiteConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every required key that is missing or out of range.
func (c *SiteConfig) Validate() error {
	var missing []string
	if c.ShoppingListPath == "" {
		missing = append(missing, "shopping_list_path")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.LoginURL == "" {
		missing = append(missing, "login_url")
	}
	if c.Retry.MaxAttempts <= 0 {
		missing = append(missing, "retry.max_attempts")
	}
	if c.Retry.IntervalMS < 0 {
		missing = append(missing, "retry.interval_ms")
	}
	if c.Notify.Enabled() && c.Notify.EmailAddress == "" {
		missing = append(missing, "notify.email_address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}
	return nil
}

// RetryPolicy converts the retry settings for element polling.
func (c *SiteConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		Attempts: c.Retry.MaxAttempts,
		Interval: time.Duration(c.Retry.IntervalMS) * time.Millisecond,
	}
}
