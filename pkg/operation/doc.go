/*
Package operation runs skelbench's two batch jobs.

	+-------------+
	|   Runner    |
	|  (retries)  |
	+------+------+
	       |
	+------+------+-------------+
	|             |             |
	| Generate    |  Metrics    |
	| Operation   |  Operation  |
	+-------------+-------------+

🎯 Purpose:
- Wraps worklist building, dispatch and persistence into one Operation
- Wraps repository listing, collection and persistence into another
- Retries whole batches that failed with provider.ErrBatchFailed
- Prints an end-of-run summary table

🔄 Flow:
1. The command builds an Operation from config and arguments
2. Runner.Run executes it, retrying batch failures with linear backoff
3. Items are reported through the console logger as they finish
4. The summary is rendered once the output file is written

🔍 Example:

	op, err := operation.NewMetricsOperation(operation.MetricsOptions{
		Source:  "repos.txt",
		Cloner:  cloner,
		Counter: counter,
		Output:  "metrics.csv",
	})
	if err != nil {
		return err
	}

	return operation.NewRunner(0, time.Second).Run(ctx, op)
*/
package operation
