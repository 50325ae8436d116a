/*
Package provider defines how skelbench talks to code generation backends.

	           +-------------+
	           |  Dispatcher |
	           +------+------+
	                  |
	           +------+------+
	           |  Generator  |
	           +------+------+
	                  |
	    +-------------+-------------+
	    |             |             |
	+---+----+   +----+-----+   +---+-----+
	| openai |   | together |   | mistral |
	+--------+   +----------+   +---------+

🎯 Purpose:
- One Generator interface, many registered backends
- Positional results, nil for a single failed item
- Batch errors wrap ErrBatchFailed so callers can retry

🔄 Flow:
1. A backend package registers its factory at init
2. The caller resolves a name (or its "-like" alias) with Get
3. The factory builds a Generator from Settings
4. The dispatcher calls Generate or GenerateFewShot once per batch

🔍 Example:

	factory, err := provider.Get("together-like")
	if err != nil {
		return err // wraps provider.ErrUnknownProvider
	}

	gen, err := factory(ctx, provider.Settings{Name: "together", Model: "meta-llama/Llama-3-70b"})
	if err != nil {
		return err
	}

	results, err := gen.Generate(ctx, []string{skeleton})
*/
package provider
