// package services wraps the Spotify and Apple Music catalog APIs
// behind a single [Catalog] interface.
//
// Each client owns its bearer token and base URL construction, maps
// HTTP failures onto the shared error taxonomy, and translates the
// engine's canonical type vocabulary (track|album|artist) to the
// provider-specific one and back.
package services
