/*
Package config loads skelbench settings.

	            +-------------+
	            |   Config    |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+  +----+----+  +----+----+
	|   YAML   |  |   HCL   |  |  JSON   |
	+----------+  +---------+  +---------+

🎯 Purpose:
- One Config struct decoded from YAML, HCL or JSON
- Defaults applied after decoding, then validated
- Path helpers that lay out datasets, test suites and prompts by version
- API keys stay in the environment, optionally loaded from .env files

🔄 Flow:
1. LoadEnv reads .env files (missing files are ignored)
2. LoadConfig picks a decoder from the file extension
3. Unknown fields are rejected
4. applyDefaults fills what the file left out
5. Validate checks durations, formats and provider settings

🔍 Example:

	cfg, err := config.LoadConfig(ctx, "skelbench.yaml")
	if err != nil {
		return err
	}

	path := cfg.DatasetPath("v2", "google")
	settings, err := cfg.ProviderSettings("together", "meta-llama/Llama-3-70b")

HCL files may reference the environment:

	data {
	  root = "${env.HOME}/skelbench/data"
	}

	provider "together" {
	  api_key_env = "TOGETHER_API_KEY"
	  concurrency = 4
	}
*/
package config
