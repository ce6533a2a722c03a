/*
Package dsl builds storeflow node graphs in Go.

It is an alternative to flow files and Markdown documents when a graph is
generated by code or assembled inside a test.

Example usage:

	b := dsl.New()

	b.Message("MAIN").
		Text("Welcome to the shop!").
		Button("Leave your phone", "ASK_PHONE")

	b.Input("ASK_PHONE").
		Text("Send your phone number.").
		Expect(domain.ValuePhoneText, "phone").
		OnSuccess("THANKS").
		OnCancel("MAIN")

	b.Message("THANKS").
		Text("Thanks! We will call {{phone}}.").
		Home("Back")

	cfg := b.Build()
	engine := storeflow.New(cfg, memory.NewStore(), transport)
*/
package dsl
