/*
Package runner executes a single worker tool run end to end.

It acts as the bridge between the graph model and the agent collaborator:
the runner picks the worker node, composes its instruction, hands it to the
streaming relay and settles the node's execution status once the relay
finishes. Chat history is appended when the run belongs to a chat.

# Usage

	r := runner.New(agent,
		runner.WithHistory(runner.NewHistory(records)),
		runner.WithLogger(logger),
	)

	res, err := r.RunGraph(ctx, store, runner.RunOptions{Mode: relay.ModeStreaming}, relay.NewWriterSink(os.Stdout))
*/
package runner
