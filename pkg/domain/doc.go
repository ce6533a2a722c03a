/*
Package domain contains the core data model of the storefront conversation engine.

It defines the node graph (a closed set of node variants), the ordered actions of
ACTION nodes, the per-user conversation state, automation rules with their button
presets, and the business events they react to. The package is kept free of I/O
and persistence concerns.

# Key Entities

  - Node: one step of the conversation (Message, Input, Condition, Subscription, Action).
  - NodeAction: one imperative step inside an ACTION node.
  - ConversationState: the single pending input of a user.
  - AutomationRule / ButtonPreset: event-driven notifications and their keyboards.
  - Press: a decoded button press; EncodePress/DecodePress are the only wire codec.
*/
package domain
