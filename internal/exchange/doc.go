// Package exchange provides the Office 365 side of the pimsync tools: the
// OAuth credential provider and an Exchange Web Services client used as
// the sync source.
//
// Authentication uses the tenant's legacy token endpoint with a stored
// refresh token; Microsoft rotates the refresh token on every refresh, so
// the new one is persisted back into the config file after each run. The
// interactive flow (pimsync auth exchange) obtains the initial token.
//
// Events are read via SOAP: FindItem with a CalendarView over the sync
// window (which expands recurring appointments into occurrences), followed
// by batched GetItem calls for the fields FindItem cannot return, such as
// the text body. The calendar item UID serves as the correlation key.
package exchange
