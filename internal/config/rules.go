// Package config — rules.go читает файлы с версиями правил подсчёта.
//
// Формат определяется по расширению: .toml, .yaml/.yml или .json.
// Файл содержит список версий; неизвестные ключи считаются ошибкой,
// чтобы опечатка в имени коэффициента не превратилась в молчаливый ноль.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"funplay.vn/light-engine/internal/pplp"
)

// rulesFile — корень файла правил.
type rulesFile struct {
	Rules []*pplp.ScoringRulesConfig `json:"rules" toml:"rules" yaml:"rules"`
}

// LoadRulesFile читает и проверяет все версии правил из файла.
func LoadRulesFile(path string) ([]*pplp.ScoringRulesConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rules: путь к файлу не задан")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: чтение файла: %w", err)
	}

	var parsed rulesFile
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("rules: разбор json: %w", err)
		}
	case ".toml", ".tml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&parsed)
		if err != nil {
			return nil, fmt.Errorf("rules: разбор toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("rules: неизвестные поля %v", undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("rules: разбор yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("rules: неподдерживаемый формат %q", ext)
	}

	if len(parsed.Rules) == 0 {
		return nil, errors.New("rules: файл не содержит ни одной версии")
	}
	for i, cfg := range parsed.Rules {
		if cfg == nil {
			return nil, fmt.Errorf("rules: запись %d пустая", i)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("rules: запись %d: %w", i, err)
		}
	}
	return parsed.Rules, nil
}

// BuildRegistry собирает реестр из встроенной V1 и версий из файла
// (если он задан) и проверяет, что активная версия существует.
func BuildRegistry(rulesPath, activeVersion string) (*pplp.Registry, *pplp.ScoringRulesConfig, error) {
	configs := []*pplp.ScoringRulesConfig{pplp.RulesV1()}
	if strings.TrimSpace(rulesPath) != "" {
		fromFile, err := LoadRulesFile(rulesPath)
		if err != nil {
			return nil, nil, err
		}
		configs = append(configs, fromFile...)
	}

	registry, err := pplp.NewRegistry(configs...)
	if err != nil {
		return nil, nil, err
	}
	active, err := registry.Get(activeVersion)
	if err != nil {
		return nil, nil, err
	}
	return registry, active, nil
}
