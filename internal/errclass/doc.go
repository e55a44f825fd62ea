// Package errclass classifies client errors and translates them into the
// Russian messages shown to users.
//
// Classification is substring based on the error text, mirroring what the
// hosted auth provider and the transcription service return. Go transport
// failures are tagged with services.ErrNetwork by the API client, and auth
// responses with services.ErrAuth, so both paths agree.
package errclass
