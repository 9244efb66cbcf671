package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlanEntry maps a numeric plan key to a processor product and tier name.
type PlanEntry struct {
	Key       int    `mapstructure:"key"`
	Name      string `mapstructure:"name"`
	ProductID string `mapstructure:"productId"`
	PriceUSDC string `mapstructure:"priceUsdc"`
}

// PlanCatalog is the versioned plan -> product mapping.
type PlanCatalog struct {
	Version int         `mapstructure:"version"`
	Plans   []PlanEntry `mapstructure:"plans"`
}

// ProductID returns the processor product id for a plan key, if configured.
func (c PlanCatalog) ProductID(key int) (string, bool) {
	for _, p := range c.Plans {
		if p.Key == key {
			return p.ProductID, true
		}
	}
	return "", false
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Version: 1,
		Plans: []PlanEntry{
			{Key: 1, Name: "base", ProductID: "", PriceUSDC: "5.00"},
			{Key: 2, Name: "plus", ProductID: "", PriceUSDC: "12.00"},
		},
	}
}

// PlanCatalogHolder serves the current plan catalog and hot-reloads it
// when the config file changes. It replaces the process-wide mutable
// environment override the admin surface used to mutate.
type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

func NewPlanCatalogHolder(cfg Config) (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.PlanConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/workfolio")
	v.AddConfigPath(".")

	holder := &PlanCatalogHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultPlanCatalog())
		return holder, nil
	}

	var catalog PlanCatalog
	if err := v.Unmarshal(&catalog); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(catalog); err != nil {
		return nil, err
	}
	holder.current.Store(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[plan-config] reload failed: %v", err)
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Printf("[plan-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func validatePlanCatalog(catalog PlanCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := make(map[int]bool, len(catalog.Plans))
	for _, p := range catalog.Plans {
		if p.Key <= 0 {
			return errors.New("plan key must be positive")
		}
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("plan name cannot be empty")
		}
		if seen[p.Key] {
			return errors.New("duplicate plan key")
		}
		seen[p.Key] = true
	}
	return nil
}
