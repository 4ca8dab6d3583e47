// # Overview
//
// The audioscrobbler 2.0 protocol is spoken by Last.fm, Libre.fm and the
// ListenBrainz compatibility proxy. This package implements the four calls a
// scrobbler needs: auth.getToken, auth.getSession, track.updateNowPlaying
// and track.scrobble.
//
// Requests are built and signed by pure functions (NewGetTokenRequest,
// NewScrobbleRequest, ...) and sent with Client.Do. Building never performs
// I/O, so requests can be inspected and tested without a server.
//
// # Authentication
//
// Desktop applications use a token-based flow:
//
//  1. Get a token with Auth().GetToken
//  2. Direct the user to Auth().AuthURL to authorize it
//  3. Exchange the token with Auth().GetSession
//  4. Store the session key and pass it in Credentials from then on
//
// # Signing
//
// Every request carries an api_sig: the MD5 of all fields except format and
// api_sig, sorted by name, concatenated as name+value, with the shared
// secret appended. Batch fields such as artist[0] sort by their base name
// and then by index.
//
// # Error Handling
//
// Errors fall into three classes reported by Classify:
//
//	_, err := client.Scrobble().ScrobbleBatch(ctx, creds, plays)
//	switch audioscrobbler.Classify(err) {
//	case audioscrobbler.ClassAuth:
//	    // credentials are unusable, stop using this endpoint
//	case audioscrobbler.ClassTransient:
//	    // keep the plays and try again later
//	case audioscrobbler.ClassPermanent:
//	    // drop the plays
//	}
//
// The client never retries on its own.
//
// # API Documentation
//
// https://www.last.fm/api/scrobbling
package audioscrobbler
