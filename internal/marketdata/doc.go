// Package marketdata speaks the Alpaca-style market-data streaming protocol
// on top of the connection manager.
//
// Frames arrive as JSON arrays of objects tagged by a "T" field. The Decoder
// turns each element into a Frame (Trade, Quote, Bar, Success, Error,
// SubscriptionAck, or Raw for anything it does not recognize). The
// Authenticator sends the key/secret frame on open and waits for the
// "authenticated" acknowledgment. Client wires both into a Manager and
// exposes typed callbacks.
package marketdata
