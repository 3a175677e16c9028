package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
)

// policyFile espelha domain.Policy. Ponteiros distinguem chave ausente de lista vazia.
type policyFile struct {
	ExemptPaths      *[]string `yaml:"exempt_paths"`
	ExemptPrefixes   *[]string `yaml:"exempt_prefixes"`
	StaticExtensions *[]string `yaml:"static_extensions"`
	AuthPaths        *[]string `yaml:"auth_paths"`
	APIPrefix        *string   `yaml:"api_prefix"`
	BlockedAgents    *[]string `yaml:"blocked_agents"`
}

// LoadPolicyFile lê um YAML e substitui em base apenas as listas presentes no arquivo.
func LoadPolicyFile(path string, base domain.Policy) (domain.Policy, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caminho definido pelo operador.
	if err != nil {
		return base, fmt.Errorf("read policy file: %w", err)
	}
	if len(data) == 0 {
		return base, errors.New("policy file is empty")
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse policy file: %w", err)
	}

	policy := base
	if file.ExemptPaths != nil {
		policy.ExemptPaths = *file.ExemptPaths
	}
	if file.ExemptPrefixes != nil {
		policy.ExemptPrefixes = *file.ExemptPrefixes
	}
	if file.StaticExtensions != nil {
		policy.StaticExtensions = *file.StaticExtensions
	}
	if file.AuthPaths != nil {
		policy.AuthPaths = *file.AuthPaths
	}
	if file.APIPrefix != nil {
		policy.APIPrefix = *file.APIPrefix
	}
	if file.BlockedAgents != nil {
		policy.BlockedAgents = *file.BlockedAgents
	}
	return policy, nil
}
