/*
Package storeflow is a conversational storefront engine: a graph of typed nodes
that a chat user walks through with buttons and free-text replies, plus a rule
engine that reacts to business events such as orders placed in a web app.

# Concept

Flows are configuration, not code. Each node is one of MESSAGE, INPUT,
CONDITION, SUBSCRIPTION or ACTION. MESSAGE and INPUT nodes are shown to the
user; CONDITION, SUBSCRIPTION and ACTION nodes are resolved on the server and
chain to the next node in the same turn. Configuration lives in a
ports.ConfigurationStore (SQL, Markdown documents via Loam, or a YAML bundle)
and is cached behind a version counter, so edits take effect on the next turn
without a restart.

Per-user state (variables, tags and the pending input) lives in a
ports.PersistenceStore. Turns of one user never overlap; WithLocker extends
that guarantee across replicas.

# Usage

	cfg := memory.NewFromNodes(
		&domain.MessageNode{Base: domain.Base{
			NodeCode: "MAIN",
			Content:  domain.Content{Text: "Welcome!"},
		}},
	)
	eng := storeflow.New(cfg, memory.NewStore(), console.New(os.Stdout))

	// Show the home node.
	_ = eng.EnterNode(ctx, "user-1", "")

	// Feed inbound traffic from your transport.
	handled, err := eng.HandleMessage(ctx, "user-1", domain.Message{Text: "5551234567"})

	// React to an order from the web app.
	orderID, err := eng.NotifyOrder(ctx, domain.Event{UserID: "user-1", Items: items})
*/
package storeflow
