// Package googleauth builds authorized HTTP clients for Google APIs from an
// OAuth client secret and a previously saved token.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

// Scopes requested for every client: read and send mail, create events.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	calendar.CalendarEventsScope,
}

// ErrNoToken is returned when the token file does not exist. Obtaining a
// token is done outside this program.
var ErrNoToken = errors.New("oauth token not found")

// HTTPClient returns a client that refreshes the saved token as needed.
func HTTPClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}

	tok, err := TokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}
	return config.Client(ctx, tok), nil
}

// TokenFromFile loads a JSON-encoded oauth2 token.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoToken, file)
	}
	if err != nil {
		return nil, fmt.Errorf("opening token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token file %s: %w", file, err)
	}
	return tok, nil
}
