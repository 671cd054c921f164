package exchange

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sboros/pimsync/internal/logging"
	"github.com/sboros/pimsync/internal/retry"
	"github.com/sboros/pimsync/internal/syncer"
)

const (
	ewsEndpoint = "https://" + exchangeServer + "/EWS/Exchange.asmx"

	// findItemPageSize bounds one CalendarView request; the client keeps
	// requesting until the view includes the last item in range.
	findItemPageSize = 512

	// getItemBatchSize bounds one GetItem request.
	getItemBatchSize = 50
)

// Client reads calendar events from an Exchange mailbox over EWS.
// It implements syncer.Source.
type Client struct {
	cfg      *Config
	endpoint string
	http     *http.Client
	tokens   oauth2.TokenSource
	logger   *slog.Logger
	retry    retry.Policy
	folderID *itemID // nil means the default calendar folder
}

// NewClient creates an EWS client for the configured mailbox. An empty or
// "Calendar" folder name selects the mailbox's default calendar folder;
// any other name is resolved with FindFolder.
func NewClient(ctx context.Context, configPath, calendarName string, logger *slog.Logger, policy retry.Policy) (*Client, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	tokens, err := TokenSource(cfg, configPath, http.DefaultClient)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		endpoint: ewsEndpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
		tokens:   tokens,
		logger:   logger,
		retry:    policy,
	}
	if calendarName != "" && calendarName != "Calendar" {
		folderID, err := c.findFolder(ctx, calendarName)
		if err != nil {
			return nil, err
		}
		c.folderID = folderID
	}
	logger.Debug("logged in to Office 365", slog.String("calendar", calendarName))
	return c, nil
}

// List returns all events starting within the window, expanded from
// recurring appointments, with full details fetched per batch.
func (c *Client) List(ctx context.Context, window syncer.Window) ([]syncer.Event, error) {
	ids, err := c.findCalendarItems(ctx, window)
	if err != nil {
		return nil, err
	}

	var events []syncer.Event
	for start := 0; start < len(ids); start += getItemBatchSize {
		end := min(start+getItemBatchSize, len(ids))
		batch, err := c.getItems(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, item := range batch {
			ev, err := item.toEvent()
			if err != nil {
				return nil, err
			}
			if window.Contains(ev.Start) {
				events = append(events, ev)
			}
		}
	}
	return disambiguateKeys(events), nil
}

// findCalendarItems pages a CalendarView over the window. CalendarView has
// no offset paging; when a page is truncated the next request narrows the
// window to start at the last returned item, deduplicating by item id.
func (c *Client) findCalendarItems(ctx context.Context, window syncer.Window) ([]itemID, error) {
	var ids []itemID
	seen := make(map[string]bool)

	from := window.Start
	for {
		req := buildFindItemRequest(c.parentFolderXML(), from, window.End, findItemPageSize)
		env, err := c.call(ctx, "find calendar items", req)
		if err != nil {
			return nil, err
		}
		if env.Body.FindItemResponse == nil || len(env.Body.FindItemResponse.ResponseMessages) == 0 {
			return nil, &syncer.DataError{Detail: "FindItem response contained no response messages"}
		}
		msg := env.Body.FindItemResponse.ResponseMessages[0]
		if err := checkResponse(msg.ResponseClass, msg.ResponseCode); err != nil {
			return nil, err
		}

		var lastStart time.Time
		for _, item := range msg.RootFolder.Items {
			if seen[item.ItemID.ID] {
				continue
			}
			seen[item.ItemID.ID] = true
			ids = append(ids, item.ItemID)
			if t, err := parseEWSTime(item.Start); err == nil && t.After(lastStart) {
				lastStart = t
			}
		}
		if msg.RootFolder.IncludesLastItemInRange {
			return ids, nil
		}
		if lastStart.IsZero() || !lastStart.After(from) {
			// Cannot advance any further; treat as truncation rather
			// than returning a partial view.
			return nil, &syncer.DataError{Detail: "calendar view truncated and cannot advance past " + from.Format(time.RFC3339)}
		}
		from = lastStart
	}
}

// getItems fetches the detail fields for a batch of item ids.
func (c *Client) getItems(ctx context.Context, ids []itemID) ([]calendarItem, error) {
	env, err := c.call(ctx, "get calendar items", buildGetItemRequest(ids))
	if err != nil {
		return nil, err
	}
	if env.Body.GetItemResponse == nil {
		return nil, &syncer.DataError{Detail: "GetItem response contained no response messages"}
	}

	var items []calendarItem
	for _, msg := range env.Body.GetItemResponse.ResponseMessages {
		if err := checkResponse(msg.ResponseClass, msg.ResponseCode); err != nil {
			return nil, err
		}
		items = append(items, msg.Items...)
	}
	return items, nil
}

// findFolder resolves a calendar folder by display name.
func (c *Client) findFolder(ctx context.Context, name string) (*itemID, error) {
	env, err := c.call(ctx, "find calendar folder", buildFindFolderRequest(c.cfg.EmailAddress))
	if err != nil {
		return nil, err
	}
	if env.Body.FindFolderResponse == nil || len(env.Body.FindFolderResponse.ResponseMessages) == 0 {
		return nil, &syncer.DataError{Detail: "FindFolder response contained no response messages"}
	}
	msg := env.Body.FindFolderResponse.ResponseMessages[0]
	if err := checkResponse(msg.ResponseClass, msg.ResponseCode); err != nil {
		return nil, err
	}

	for _, f := range msg.Folders {
		if f.DisplayName == name {
			id := f.FolderID
			return &id, nil
		}
	}
	return nil, &syncer.DataError{Detail: "no such Exchange calendar: " + name}
}

// call posts a SOAP request and decodes the response envelope, retrying
// transient failures.
func (c *Client) call(ctx context.Context, operation string, body string) (*soapEnvelope, error) {
	c.logger.Debug("calling EWS", logging.Operation(operation))
	var env *soapEnvelope
	err := c.retry.Do(ctx, operation, func() error {
		var err error
		env, err = c.post(ctx, body)
		return err
	})
	return env, err
}

func (c *Client) post(ctx context.Context, body string) (*soapEnvelope, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	token.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &syncer.TransientError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &syncer.TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &syncer.AuthError{Provider: "exchange", Err: fmt.Errorf("EWS returned status %d", resp.StatusCode)}
	case retry.TransientStatus(resp.StatusCode):
		return nil, &syncer.TransientError{Err: fmt.Errorf("EWS returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &syncer.DataError{Detail: fmt.Sprintf("EWS returned status %d: %s", resp.StatusCode, truncate(data))}
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, &syncer.DataError{Detail: "failed to parse EWS response: " + err.Error()}
	}
	if env.Body.Fault != nil {
		return nil, &syncer.DataError{Detail: fmt.Sprintf("EWS fault %s: %s", env.Body.Fault.FaultCode, env.Body.Fault.FaultString)}
	}
	return &env, nil
}

func (c *Client) parentFolderXML() string {
	if c.folderID != nil {
		return fmt.Sprintf(`<t:FolderId Id=%q ChangeKey=%q/>`, c.folderID.ID, c.folderID.ChangeKey)
	}
	return fmt.Sprintf(
		`<t:DistinguishedFolderId Id="calendar"><t:Mailbox><t:EmailAddress>%s</t:EmailAddress></t:Mailbox></t:DistinguishedFolderId>`,
		xmlEscape(c.cfg.EmailAddress))
}

// checkResponse maps an EWS response code to the error taxonomy: server
// busy and throttling codes are transient, everything else is a data error.
func checkResponse(class, code string) error {
	if class == "" || strings.EqualFold(class, "Success") {
		return nil
	}
	switch code {
	case "ErrorServerBusy", "ErrorTimeoutExpired", "ErrorTooManyObjectsOpened":
		return &syncer.TransientError{Err: fmt.Errorf("EWS response code %s", code)}
	}
	return &syncer.DataError{Detail: fmt.Sprintf("EWS %s response: %s", class, code)}
}

// disambiguateKeys suffixes the occurrence start onto correlation keys
// that repeat within one listing: occurrences of a recurring appointment
// all share the master's UID, and the occurrence start is the stable part
// of their identity.
func disambiguateKeys(events []syncer.Event) []syncer.Event {
	counts := make(map[string]int, len(events))
	for _, ev := range events {
		counts[ev.Key]++
	}
	for i, ev := range events {
		if counts[ev.Key] > 1 {
			events[i].Key = ev.Key + "/" + ev.Start.UTC().Format(time.RFC3339)
		}
	}
	return events
}

func truncate(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
