package exchange

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Request bodies are rendered from templates rather than marshalled
// structs: EWS requests mix two namespaces with attributes in both, which
// encoding/xml cannot express cleanly on the way out.

const envelopeFormat = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:t="http://schemas.microsoft.com/exchange/services/2006/types"
    xmlns:m="http://schemas.microsoft.com/exchange/services/2006/messages">
  <soap:Header>
    <t:RequestServerVersion Version="Exchange2013_SP1"/>
  </soap:Header>
  <soap:Body>
%s  </soap:Body>
</soap:Envelope>
`

func buildFindItemRequest(parentFolder string, start, end time.Time, maxEntries int) string {
	body := fmt.Sprintf(`    <m:FindItem Traversal="Shallow">
      <m:ItemShape>
        <t:BaseShape>IdOnly</t:BaseShape>
        <t:AdditionalProperties>
          <t:FieldURI FieldURI="calendar:Start"/>
          <t:FieldURI FieldURI="calendar:UID"/>
        </t:AdditionalProperties>
      </m:ItemShape>
      <m:CalendarView MaxEntriesReturned="%d" StartDate="%s" EndDate="%s"/>
      <m:ParentFolderIds>%s</m:ParentFolderIds>
    </m:FindItem>
`,
		maxEntries,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		parentFolder)
	return fmt.Sprintf(envelopeFormat, body)
}

func buildGetItemRequest(ids []itemID) string {
	var itemIDs strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&itemIDs, `        <t:ItemId Id=%q ChangeKey=%q/>
`, id.ID, id.ChangeKey)
	}

	body := fmt.Sprintf(`    <m:GetItem>
      <m:ItemShape>
        <t:BaseShape>IdOnly</t:BaseShape>
        <t:AdditionalProperties>
          <t:FieldURI FieldURI="item:Subject"/>
          <t:FieldURI FieldURI="calendar:Start"/>
          <t:FieldURI FieldURI="calendar:End"/>
          <t:FieldURI FieldURI="calendar:IsAllDayEvent"/>
          <t:FieldURI FieldURI="calendar:Location"/>
          <t:FieldURI FieldURI="calendar:UID"/>
          <t:FieldURI FieldURI="item:TextBody"/>
        </t:AdditionalProperties>
      </m:ItemShape>
      <m:ItemIds>
%s      </m:ItemIds>
    </m:GetItem>
`, itemIDs.String())
	return fmt.Sprintf(envelopeFormat, body)
}

func buildFindFolderRequest(email string) string {
	body := fmt.Sprintf(`    <m:FindFolder Traversal="Deep">
      <m:FolderShape>
        <t:BaseShape>IdOnly</t:BaseShape>
        <t:AdditionalProperties>
          <t:FieldURI FieldURI="folder:DisplayName"/>
        </t:AdditionalProperties>
      </m:FolderShape>
      <m:ParentFolderIds>
        <t:DistinguishedFolderId Id="msgfolderroot">
          <t:Mailbox><t:EmailAddress>%s</t:EmailAddress></t:Mailbox>
        </t:DistinguishedFolderId>
      </m:ParentFolderIds>
    </m:FindFolder>
`, xmlEscape(email))
	return fmt.Sprintf(envelopeFormat, body)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s)) //nolint:errcheck // cannot fail on a bytes.Buffer
	return buf.String()
}
