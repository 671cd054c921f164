package exchange

import (
	"encoding/xml"
	"time"

	"github.com/sboros/pimsync/internal/syncer"
)

// Response envelopes. Field tags use local names only, so they match the
// EWS types and messages namespaces alike.

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault              *soapFault          `xml:"Fault"`
	FindItemResponse   *findItemResponse   `xml:"FindItemResponse"`
	GetItemResponse    *getItemResponse    `xml:"GetItemResponse"`
	FindFolderResponse *findFolderResponse `xml:"FindFolderResponse"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type findItemResponse struct {
	ResponseMessages []findItemResponseMessage `xml:"ResponseMessages>FindItemResponseMessage"`
}

type findItemResponseMessage struct {
	ResponseClass string     `xml:"ResponseClass,attr"`
	ResponseCode  string     `xml:"ResponseCode"`
	RootFolder    rootFolder `xml:"RootFolder"`
}

type rootFolder struct {
	TotalItemsInView        int            `xml:"TotalItemsInView,attr"`
	IncludesLastItemInRange bool           `xml:"IncludesLastItemInRange,attr"`
	Items                   []calendarItem `xml:"Items>CalendarItem"`
}

type getItemResponse struct {
	ResponseMessages []getItemResponseMessage `xml:"ResponseMessages>GetItemResponseMessage"`
}

type getItemResponseMessage struct {
	ResponseClass string         `xml:"ResponseClass,attr"`
	ResponseCode  string         `xml:"ResponseCode"`
	Items         []calendarItem `xml:"Items>CalendarItem"`
}

type findFolderResponse struct {
	ResponseMessages []findFolderResponseMessage `xml:"ResponseMessages>FindFolderResponseMessage"`
}

type findFolderResponseMessage struct {
	ResponseClass string   `xml:"ResponseClass,attr"`
	ResponseCode  string   `xml:"ResponseCode"`
	Folders       []folder `xml:"RootFolder>Folders>CalendarFolder"`
}

type folder struct {
	FolderID    itemID `xml:"FolderId"`
	DisplayName string `xml:"DisplayName"`
}

type calendarItem struct {
	ItemID        itemID `xml:"ItemId"`
	UID           string `xml:"UID"`
	Subject       string `xml:"Subject"`
	Start         string `xml:"Start"`
	End           string `xml:"End"`
	IsAllDayEvent bool   `xml:"IsAllDayEvent"`
	Location      string `xml:"Location"`
	TextBody      string `xml:"TextBody"`
}

type itemID struct {
	ID        string `xml:"Id,attr"`
	ChangeKey string `xml:"ChangeKey,attr"`
}

// toEvent converts an EWS calendar item to the provider-neutral form. The
// iCalendar UID is the correlation key; occurrences of recurring
// appointments all carry the master UID and are disambiguated afterwards
// by their start time.
func (ci calendarItem) toEvent() (syncer.Event, error) {
	start, err := parseEWSTime(ci.Start)
	if err != nil {
		return syncer.Event{}, &syncer.DataError{Detail: "unparseable start time for item " + ci.ItemID.ID + ": " + ci.Start}
	}
	end, err := parseEWSTime(ci.End)
	if err != nil {
		return syncer.Event{}, &syncer.DataError{Detail: "unparseable end time for item " + ci.ItemID.ID + ": " + ci.End}
	}

	key := ci.UID
	if key == "" {
		key = ci.ItemID.ID
	}
	return syncer.Event{
		Key:      key,
		Title:    ci.Subject,
		Start:    start,
		End:      end,
		AllDay:   ci.IsAllDayEvent,
		Location: ci.Location,
		Body:     ci.TextBody,
	}, nil
}

// parseEWSTime accepts the timestamp shapes EWS emits: RFC 3339 with
// either a zone offset or a trailing Z.
func parseEWSTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
