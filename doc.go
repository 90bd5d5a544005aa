/*
Package weave assembles the workflow editor backend: graph sessions
persisted in a record store, a runner that turns a worker node into an
agent instruction, and the relay that streams the agent's output back.

# Usage

Load a configuration and build an App. The memory driver needs no
external service.

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	app, err := weave.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	http.ListenAndServe(cfg.Addr(), app.Handler())

Graphs can also be driven directly:

	store, _ := app.Manager().Create(ctx, "g1", "Treasury")
	store.AddNode(domain.Node{ID: "w", Type: domain.NodeTypeWorker, Data: data})
	app.Runner().RunGraph(ctx, store, runner.RunOptions{}, relay.NewWriterSink(os.Stdout))

# Storage

The store.driver setting selects memory, redis, sqlite or postgres. Every
driver is wrapped with a middleware that masks credential fields before
they are written. The redis driver also provides the distributed lock
used when several processes edit the same graph.
*/
package weave
