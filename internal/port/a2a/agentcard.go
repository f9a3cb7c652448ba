package a2a

// BuildAgentCard returns the AgentCard advertised by the support service.
func BuildAgentCard(baseURL string) AgentCard {
	return AgentCard{
		Name:        "AutoCRM",
		Description: "Customer support agent: order lookups, account security and refunds",
		URL:         baseURL,
		Version:     "0.1.0",
		Skills: []Skill{
			{
				ID:          SkillSupportRequest,
				Name:        "Support Request",
				Description: "Triage a customer message and answer it with the matching specialist",
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
		},
		Capabilities: Capabilities{Streaming: false},
	}
}
