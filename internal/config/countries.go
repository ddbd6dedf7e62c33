package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CountryRule describes the jurisdiction-specific validation rules for one
// GCC market. The msisdn fields validate phone numbers after normalization
// to international form; the patterns are anchored regular expressions.
type CountryRule struct {
	Name              string `mapstructure:"name"`
	Timezone          string `mapstructure:"timezone"`
	MsisdnPrefix      string `mapstructure:"msisdnPrefix"`
	MsisdnLength      int    `mapstructure:"msisdnLength"`
	NationalIDPattern string `mapstructure:"nationalIdPattern"`
	NationalIDName    string `mapstructure:"nationalIdName"`
	PlatePattern      string `mapstructure:"platePattern"`
}

func DefaultCountryRules() map[string]CountryRule {
	return map[string]CountryRule{
		"AE": {
			Name:              "United Arab Emirates",
			Timezone:          "Asia/Dubai",
			MsisdnPrefix:      "+971",
			MsisdnLength:      13,
			NationalIDPattern: `^784-?\d{4}-?\d{7}-?\d$`,
			NationalIDName:    "Emirates ID",
			PlatePattern:      `^[A-Z]{0,3}-?\d{1,5}$`,
		},
		"SA": {
			Name:              "Saudi Arabia",
			Timezone:          "Asia/Riyadh",
			MsisdnPrefix:      "+966",
			MsisdnLength:      13,
			NationalIDPattern: `^[12]\d{9}$`,
			NationalIDName:    "Iqama/National ID",
			PlatePattern:      `^\d{1,4}-?[A-Z]{3}$`,
		},
		"QA": {
			Name:              "Qatar",
			Timezone:          "Asia/Qatar",
			MsisdnPrefix:      "+974",
			MsisdnLength:      12,
			NationalIDPattern: `^\d{11}$`,
			NationalIDName:    "QID",
			PlatePattern:      `^\d{1,6}$`,
		},
		"BH": {
			Name:              "Bahrain",
			Timezone:          "Asia/Bahrain",
			MsisdnPrefix:      "+973",
			MsisdnLength:      12,
			NationalIDPattern: `^\d{9}$`,
			NationalIDName:    "CPR",
			PlatePattern:      `^\d{1,6}$`,
		},
		"KW": {
			Name:              "Kuwait",
			Timezone:          "Asia/Kuwait",
			MsisdnPrefix:      "+965",
			MsisdnLength:      12,
			NationalIDPattern: `^\d{12}$`,
			NationalIDName:    "Civil ID",
			PlatePattern:      `^\d{1,2}-?\d{1,5}$`,
		},
		"OM": {
			Name:              "Oman",
			Timezone:          "Asia/Muscat",
			MsisdnPrefix:      "+968",
			MsisdnLength:      12,
			NationalIDPattern: `^\d{5,9}$`,
			NationalIDName:    "National ID",
			PlatePattern:      `^\d{1,5}-?[A-Z]{1,2}$`,
		},
	}
}

// CountryRulesHolder serves the current rule set and hot-reloads it when the
// mounted config file changes. Lookups are lock-free.
type CountryRulesHolder struct {
	current atomic.Value // holds map[string]CountryRule
}

func NewCountryRulesHolder() (*CountryRulesHolder, error) {
	v := viper.New()

	v.SetConfigName("countries")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fnol/config")
	v.AddConfigPath("/etc/fnol")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FNOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &CountryRulesHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultCountryRules())
		return holder, nil
	}

	rules, err := unmarshalRules(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(rules)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalRules(v)
		if err != nil {
			log.Printf("[country-rules] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[country-rules] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCountryRulesHolder wraps a fixed rule set, mainly for tests.
func NewStaticCountryRulesHolder(rules map[string]CountryRule) *CountryRulesHolder {
	holder := &CountryRulesHolder{}
	holder.current.Store(rules)
	return holder
}

func (h *CountryRulesHolder) Get() map[string]CountryRule {
	return h.current.Load().(map[string]CountryRule)
}

// Rule returns the rules for a jurisdiction code, case-insensitive.
func (h *CountryRulesHolder) Rule(code string) (CountryRule, bool) {
	rule, ok := h.Get()[strings.ToUpper(strings.TrimSpace(code))]
	return rule, ok
}

func unmarshalRules(v *viper.Viper) (map[string]CountryRule, error) {
	var rules map[string]CountryRule
	if err := v.UnmarshalKey("countries", &rules); err != nil {
		return nil, err
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	normalized := make(map[string]CountryRule, len(rules))
	for code, rule := range rules {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = rule
	}
	return normalized, nil
}

func validateRules(rules map[string]CountryRule) error {
	if len(rules) == 0 {
		return errors.New("countries cannot be empty")
	}
	for code, rule := range rules {
		if strings.TrimSpace(rule.MsisdnPrefix) == "" {
			return errors.New("countries." + code + ".msisdnPrefix cannot be empty")
		}
		if rule.MsisdnLength <= 0 {
			return errors.New("countries." + code + ".msisdnLength must be positive")
		}
	}
	return nil
}
