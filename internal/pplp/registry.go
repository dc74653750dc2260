// Package pplp — registry.go хранит все известные версии правил.
//
// Одна версия — одна неизменяемая конфигурация. Повторная регистрация
// той же версии с другими коэффициентами запрещена: любая правка обязана
// получить новую rule_version, иначе пересчёт старых эпох даст другой результат.
package pplp

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"lukechampine.com/blake3"
)

// Fingerprint возвращает hex BLAKE3 канонического JSON конфигурации.
// Ключи карт encoding/json сортирует сам, так что отпечаток стабилен.
func (c *ScoringRulesConfig) Fingerprint() (string, error) {
	if c == nil {
		return "", ErrNilConfig
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("pplp: сериализация правил %s: %w", c.RuleVersion, err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type registryEntry struct {
	cfg         *ScoringRulesConfig
	fingerprint string
}

// Registry — потокобезопасный набор версий правил. Наружу отдаются только копии.
type Registry struct {
	mu       sync.RWMutex
	versions map[string]registryEntry
}

// NewRegistry создаёт реестр и регистрирует переданные конфигурации.
func NewRegistry(configs ...*ScoringRulesConfig) (*Registry, error) {
	r := &Registry{versions: make(map[string]registryEntry)}
	for _, cfg := range configs {
		if err := r.Register(cfg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register проверяет и добавляет версию. Повтор с тем же содержимым — no-op.
func (r *Registry) Register(cfg *ScoringRulesConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	fp, err := cfg.Fingerprint()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.versions[cfg.RuleVersion]; ok {
		if existing.fingerprint != fp {
			return fmt.Errorf("%w: %s", ErrVersionConflict, cfg.RuleVersion)
		}
		return nil
	}
	r.versions[cfg.RuleVersion] = registryEntry{cfg: cfg.Clone(), fingerprint: fp}
	return nil
}

// Get возвращает копию правил указанной версии.
func (r *Registry) Get(version string) (*ScoringRulesConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	return entry.cfg.Clone(), nil
}

// FingerprintOf возвращает отпечаток зарегистрированной версии.
func (r *Registry) FingerprintOf(version string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.versions[version]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	return entry.fingerprint, nil
}

// Versions возвращает все версии по возрастанию.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.versions))
	for v := range r.versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
