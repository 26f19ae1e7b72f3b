package candidate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/prebid/prebid-waterfall/adtypes"
	"github.com/prebid/prebid-waterfall/errortypes"
	"github.com/prebid/prebid-waterfall/headers"
)

// Record is a single, not yet validated, entry of the ad_responses array.
type Record struct {
	// Content is the raw JSON value of the content field, nil if absent.
	Content     []byte
	ContentType jsonparser.ValueType
	Metadata    headers.Map
}

// ParseRecord splits a raw ad_responses entry into content and flattened metadata.
func ParseRecord(raw []byte) (*Record, error) {
	if _, dataType, _, err := jsonparser.Get(raw); err != nil || dataType != jsonparser.Object {
		return nil, &errortypes.BadBody{Message: "ad response entry is not a JSON object"}
	}

	metadata, dataType, _, err := jsonparser.Get(raw, headers.Metadata)
	if err != nil || dataType != jsonparser.Object {
		return nil, &errortypes.BadHeaderData{Message: "ad response entry has no metadata object"}
	}
	flat, err := headers.FlattenJSONObject(metadata)
	if err != nil {
		return nil, &errortypes.BadHeaderData{Message: fmt.Sprintf("unable to read metadata: %v", err)}
	}

	record := &Record{Metadata: flat, ContentType: jsonparser.NotExist}
	if content, dataType, _, err := jsonparser.Get(raw, headers.Content); err == nil {
		record.Content = content
		record.ContentType = dataType
	}
	return record, nil
}

// AdType returns the record's ad type tag, or "" if absent.
func (r *Record) AdType() adtypes.AdType {
	return adtypes.AdType(strings.TrimSpace(headers.ExtractString(r.Metadata, headers.AdType)))
}

// RefreshTimeMillis converts the record's refreshtime header (seconds) to milliseconds.
func (r *Record) RefreshTimeMillis() *int {
	return refreshTimeMillis(r.Metadata)
}

// Parse validates one raw candidate and builds its AdCandidate.
func Parse(raw []byte, format adtypes.AdFormat, adUnitID string, table *adtypes.AdapterTable) (*AdCandidate, error) {
	record, err := ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	return ParseFromRecord(record, format, adUnitID, table)
}

// ParseFromRecord is Parse for a record which has already been split by ParseRecord.
//
// A "clear" record is not a creative: it yields a NoFill error (or WarmingUp when the warm-up flag is
// set) carrying the refresh hint the caller should wait before asking again. Validation errors carry
// the record's refresh hint too, when it sent one.
func ParseFromRecord(record *Record, format adtypes.AdFormat, adUnitID string, table *adtypes.AdapterTable) (*AdCandidate, error) {
	c, err := parseFromRecord(record, format, adUnitID, table)
	if err != nil {
		return nil, errortypes.WithRefreshTime(err, record.RefreshTimeMillis())
	}
	return c, nil
}

func parseFromRecord(record *Record, format adtypes.AdFormat, adUnitID string, table *adtypes.AdapterTable) (*AdCandidate, error) {
	h := record.Metadata
	adType := record.AdType()
	if adType == "" {
		return nil, &errortypes.BadHeaderData{Message: "ad response is missing the ad type"}
	}

	warmingUp := headers.ExtractBoolean(h, headers.Warmup, false)
	if warmingUp {
		return nil, &errortypes.WarmingUp{
			Message: "Ad unit is warming up",
			Refresh: record.RefreshTimeMillis(),
		}
	}
	if adType == adtypes.AdTypeClear {
		return nil, &errortypes.NoFill{
			Message: "No ads found for ad unit " + adUnitID,
			Refresh: record.RefreshTimeMillis(),
		}
	}

	content, err := readContent(record, adType)
	if err != nil {
		return nil, err
	}

	clickURL := headers.ExtractString(h, headers.ClickTrackingURL)
	if clickURL == "" {
		return nil, &errortypes.BadHeaderData{Message: "ad response is missing the click tracking url"}
	}

	fullAdType := adtypes.FullAdType(headers.ExtractString(h, headers.FullAdType))
	adapterID, err := resolveAdapter(h, format, adType, fullAdType, table)
	if err != nil {
		return nil, err
	}

	c := &AdCandidate{
		AdType:                 adType,
		FullAdType:             fullAdType,
		AdFormat:               format,
		AdUnitID:               adUnitID,
		ClickTrackingURL:       clickURL,
		ImpressionTrackingURLs: impressionURLs(h),
		BeforeLoadURL:          headers.ExtractString(h, headers.BeforeLoadURL),
		AfterLoadURL:           headers.ExtractString(h, headers.AfterLoadURL),
		RefreshTimeMillis:      record.RefreshTimeMillis(),
		Width:                  optionalInt(h, headers.Width),
		Height:                 optionalInt(h, headers.Height),
		AdTimeoutMillis:        optionalInt(h, headers.AdTimeout),
		CreativeID:             headers.ExtractString(h, headers.CreativeID),
		BrowserAgent:           adtypes.ParseBrowserAgent(headers.ExtractIntWithDefault(h, headers.BrowserAgent, int(adtypes.BrowserAgentInApp))),
		Content:                content,
		AdapterID:              adapterID,
		BiddingMarkup:          headers.ExtractString(h, headers.AdvancedBiddingMarkup),
	}
	c.ServerExtras = buildExtras(h, c)
	return c, nil
}

func readContent(record *Record, adType adtypes.AdType) (string, error) {
	if adType.IsNative() {
		if record.ContentType != jsonparser.Object {
			return "", &errortypes.BadBody{Message: fmt.Sprintf("%s ad content must be a JSON object", adType)}
		}
		return string(record.Content), nil
	}

	switch record.ContentType {
	case jsonparser.NotExist:
		return "", &errortypes.BadBody{Message: "ad response is missing content"}
	case jsonparser.String:
		s, err := jsonparser.ParseString(record.Content)
		if err != nil {
			return "", &errortypes.BadBody{Message: fmt.Sprintf("unable to read ad content: %v", err)}
		}
		return s, nil
	case jsonparser.Null:
		return "", nil
	}
	return string(record.Content), nil
}

// resolveAdapter prefers the explicit custom-event-class-name header over the lookup table.
func resolveAdapter(h headers.Map, format adtypes.AdFormat, adType adtypes.AdType, fullAdType adtypes.FullAdType, table *adtypes.AdapterTable) (adtypes.AdapterID, error) {
	if name := strings.TrimSpace(headers.ExtractString(h, headers.CustomEventClassName)); name != "" {
		return adtypes.AdapterID(name), nil
	}
	if table == nil {
		table = adtypes.DefaultAdapterTable()
	}
	if id, ok := table.Lookup(format, adType, fullAdType); ok {
		return id, nil
	}
	return "", &errortypes.BadHeaderData{
		Message: fmt.Sprintf("no adapter for ad type %q (full ad type %q) in a %s placement", adType, fullAdType, format),
	}
}

// impressionURLs honours the list header first and promotes the legacy single header otherwise.
func impressionURLs(h headers.Map) []string {
	if h.Has(headers.ImpressionURLs) {
		if list, ok := headers.ExtractStringList(h, headers.ImpressionURLs); ok {
			return list
		}
	}
	if url := headers.ExtractString(h, headers.ImpressionURL); url != "" {
		return []string{url}
	}
	return []string{}
}

func refreshTimeMillis(h headers.Map) *int {
	seconds, ok := headers.ExtractInt(h, headers.RefreshTime)
	if !ok {
		return nil
	}
	millis := seconds * 1000
	return &millis
}

func optionalInt(h headers.Map, key string) *int {
	i, ok := headers.ExtractInt(h, key)
	if !ok {
		return nil
	}
	return &i
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
