/*
Package ports defines the driven ports (interfaces) of the storeflow engine.

These interfaces decouple the interpreter and the automation engine from the
storage backends, chat transports and membership lookups that carry them.

# Key Interfaces

  - ConfigurationStore: read side of the admin-managed graph, rules and presets.
  - PersistenceStore: per-user variables, tags, pending input and orders.
  - Transport: outbound delivery to users and the admin chat.
  - MembershipChecker: channel membership lookups for subscription checks.
  - DistributedLocker: cross-replica serialization of a user's turns.
*/
package ports
