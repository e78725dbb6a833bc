// Package device connects models to the outside world.
//
// A node hosts one model per element location. Each model runs in its own
// goroutine and talks to the rest of the system only through a Context:
// an inbound stream of payloads and a best-effort Publish.
//
// # Inbound payloads
//
// An InboundPayload is either a MessagePayload (a decoded access message
// plus its addressing metadata) or a ControlPayload (a local control event
// such as a publication cadence change). Each payload is consumed exactly
// once by the model it was routed to, in arrival order.
//
// # Racing event sources
//
// Models wait on two event sources at once with Select. When both sources
// are ready at the time of the call the first one wins; the loser is left
// untouched for the next round.
//
// # Routing
//
// Router owns one Channel per location. Transports hand raw envelopes to
// Router.Deliver, which filters by unicast address, decodes with the
// element's parser and queues the result. Channel.Publish encodes outgoing
// messages and passes them to the transport's Sink. Every inbound and
// outbound message is recorded in the protocol log when one is configured.
//
// Node ties a Router to a set of Elements and runs their models under a
// single errgroup.
package device
