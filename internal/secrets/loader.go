package secrets

import "github.com/Strob0t/AutoCRM/internal/config"

// ConfigLoader returns a Loader that re-reads the service configuration
// (YAML and environment) and extracts its credentials.
func ConfigLoader(load func() (*config.Config, error)) Loader {
	return func() (map[string]string, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		return map[string]string{
			KeyApproverHash: cfg.Approval.KeyHash,
			KeyLLMAPIKey:    cfg.LLM.APIKey,
			KeyMCPAPIKey:    cfg.MCP.APIKey,
		}, nil
	}
}
