package skills

// builtinSkills returns the fixed set of skills shipped with the agent,
// each with default instructions that a user may override per-agent via
// SetCustomInstructions.
func builtinSkills() []Skill {
	return []Skill{
		{
			ID:          "web_research",
			Name:        "Web Research",
			Description: "Search the web and fetch pages to answer questions about current events or unfamiliar topics.",
			Instructions: "Use web_search to find relevant pages, then web_fetch to read the most promising results. " +
				"Prefer primary sources. Cite URLs you relied on in your answer.",
			Source: "builtin",
		},
		{
			ID:          "file_ops",
			Name:        "File Operations",
			Description: "Read, write, and search files in the agent's workspace.",
			Instructions: "Use read_file/write_file/list_files/search for workspace file access. " +
				"Prefer edit_file for targeted changes over rewriting whole files.",
			Source: "builtin",
		},
		{
			ID:          "shell",
			Name:        "Shell",
			Description: "Run shell commands in the workspace for tasks files alone can't cover.",
			Instructions: "Use exec for commands that read_file/write_file can't express (running tests, " +
				"installing dependencies, inspecting running processes). Destructive and networked commands " +
				"may require approval or be denied outright.",
			Source: "builtin",
		},
		{
			ID:          "coinbase",
			Name:        "Coinbase",
			Description: "Check balances and place trades through a connected Coinbase account.",
			Instructions: "Use the coinbase_* tools for balance and trade requests. Never ask the user for API " +
				"keys — authentication is handled by the tool itself.",
			RequiredCredentials: []CredentialField{{Key: "api_key", Description: "Coinbase API key"}},
			HideCredentials:     true,
			Source:              "builtin",
		},
		{
			ID:          "dex",
			Name:        "Decentralized Exchange",
			Description: "Swap tokens and check liquidity pools on a connected DEX.",
			Instructions: "Use the dex_* tools for swaps and pool queries. Never ask the user for a private key " +
				"or signing credential — authentication is handled by the tool itself.",
			RequiredCredentials: []CredentialField{{Key: "wallet_key", Description: "DEX signing key"}},
			HideCredentials:     true,
			Source:              "builtin",
		},
		{
			ID:          "trello",
			Name:        "Trello",
			Description: "Manage Trello boards, lists, cards, checklists, labels, and members.",
			Instructions: "Use the trello_* tools for board and card operations. Look up board/list/card IDs with " +
				"trello_boards, trello_lists, and trello_search before acting on them.",
			RequiredCredentials: []CredentialField{
				{Key: "api_key", Description: "Trello API key"},
				{Key: "token", Description: "Trello API token"},
			},
			Source: "builtin",
		},
	}
}
