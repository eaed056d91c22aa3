/*
Package flows composes the atomic nodes into reference conversation flows.

A booking flow captures the customer's name, then presents a numbered
service catalog and waits for the customer to pick one:

	g, err := flows.NewBooking(flows.BookingConfig{
		Transport: outbox,
		Catalog:   flows.CatalogRequest("https://erp.example/api/services"),
	})

The flows are ordinary graphs and groups. They can be extended with
further nodes through graph.Builder, or used as templates.
*/
package flows
