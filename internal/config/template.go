package config

import (
	"fmt"
	"os"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
)

const starterConfig = `# docgen configuration
project:
  name: My Project
  path: /absolute/path/to/your/project
  description: Brief project description

gemini:
  api_key: ${GEMINI_API_KEY}
  model: gemini-2.5-pro

throttle:
  max_per_minute: 15
  category_delays:
    plan: 2s
    section: 4s
    screenshot: 2s
    diagram: 2s

retry:
  max_retries: 3
  initial_delay: 5s
  max_delay: 60s
  backoff: exponential

plan:
  min_sections: 3
  max_sections: 12

diagram:
  enabled: true
  max_chars: 1500
  remote_max_chars: 1000
  local_bin: mmdc
  remote_url: https://kroki.io/mermaid/png
  timeout: 30s

screenshots:
  enabled: true
  dir: ./screenshots

output:
  dir: ./output
  filename: documentation.md
  html: true
`

const starterEnv = `# docgen secrets
# Get your API key from: https://aistudio.google.com/apikey
GEMINI_API_KEY=your_api_key_here
`

// WriteStarter writes a starter config file and, when missing, a .env
// template next to it. Refuses to overwrite unless force is set.
func WriteStarter(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return dgerr.ValidationFailed("config",
			fmt.Sprintf("%s already exists (use --force to overwrite)", path))
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("write starter config: %w", err)
	}
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		if err := os.WriteFile(".env", []byte(starterEnv), 0o600); err != nil {
			return fmt.Errorf("write .env template: %w", err)
		}
	}
	return nil
}
