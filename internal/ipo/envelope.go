package ipo

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Format tags how a response body was understood.
type Format string

const (
	FormatJSON    Format = "json"
	FormatXML     Format = "xml"
	FormatUnknown Format = "unknown"
)

// Record is one normalized appliance entity: every field flattened to a
// string, original-cased keys preserved, plus promoted lowercase-camel
// convenience keys. "guid" is always present (empty when the appliance
// omitted it).
type Record map[string]string

// Result is the outcome of normalizing one response body.
type Result struct {
	Records []Record
	Format  Format
}

const (
	recordKeyUser      = "User"
	recordKeyExtension = "Extension"
	recordKeyLicense   = "License"
	recordKeySystem    = "System"
)

// User fields that exist on the wire but carry no admin-facing value.
var omitUserFields = map[string]bool{
	"ExpansionType":   true,
	"PhoneType":       true,
	"SpecificBstType": true,
}

// ParseEnvelope normalizes an appliance response body into flat records.
//
// The JSON envelope is response -> "@status" -> data -> ws_object, where
// ws_object is a single wrapper object or an array of them and each wrapper
// nests the entity under recordKey. An application status of "0" is the
// appliance saying "no data" over HTTP 200; that is an empty result, not an
// error, and this function never fails — unparseable input degrades to an
// empty record list tagged FormatUnknown. A minimal XML extraction exists
// for User records only (legacy firmware).
func ParseEnvelope(body, recordKey string) Result {
	objects, format, ok := envelopeObjects(body, recordKey)
	if ok {
		records := make([]Record, 0, len(objects))
		for _, obj := range objects {
			records = append(records, buildRecord(obj, recordKey))
		}
		return Result{Records: records, Format: format}
	}

	if recordKey == recordKeyUser && strings.HasPrefix(strings.TrimSpace(body), "<") {
		return Result{Records: parseUsersXML(body), Format: FormatXML}
	}

	return Result{Records: []Record{}, Format: FormatUnknown}
}

// Entity-specific wrappers over ParseEnvelope.

func ParseUsers(body string) Result      { return ParseEnvelope(body, recordKeyUser) }
func ParseExtensions(body string) Result { return ParseEnvelope(body, recordKeyExtension) }
func ParseLicenses(body string) Result   { return ParseEnvelope(body, recordKeyLicense) }
func ParseSystems(body string) Result    { return ParseEnvelope(body, recordKeySystem) }

// ParseErrorDesc digs the appliance's own error description out of a
// failure envelope. Returns "" when the body is not a recognizable
// application-level failure.
func ParseErrorDesc(body string) string {
	root := decodeObject(body)
	resp := asObject(root["response"])
	if resp == nil {
		return ""
	}
	if asString(resp["@status"]) != "0" && asString(resp["status"]) != "0" {
		return ""
	}

	smaError := asObject(asObject(asObject(resp["data"])["ws_object"])["SMAError"])
	if desc := asString(asObject(smaError["error"])["error_desc"]); desc != "" {
		return desc
	}
	return "IPO returned an error."
}

func envelopeObjects(body, recordKey string) ([]map[string]any, Format, bool) {
	root := decodeObject(body)
	if root == nil {
		return nil, FormatUnknown, false
	}
	resp := asObject(root["response"])
	if resp == nil {
		return nil, FormatUnknown, false
	}

	status := asString(resp["@status"])
	if status == "" {
		status = asString(resp["status"])
	}

	switch status {
	case "1":
		ws := asObject(resp["data"])["ws_object"]
		var entries []any
		switch v := ws.(type) {
		case []any:
			entries = v
		case nil:
		default:
			entries = []any{v}
		}

		objects := make([]map[string]any, 0, len(entries))
		for _, entry := range entries {
			// Entries not wrapping the requested entity are malformed
			// noise, dropped rather than fatal.
			if obj := asObject(asObject(entry)[recordKey]); obj != nil {
				objects = append(objects, obj)
			}
		}
		return objects, FormatJSON, true

	case "0":
		return nil, FormatJSON, true

	default:
		return nil, FormatUnknown, false
	}
}

func decodeObject(body string) map[string]any {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil
	}
	return root
}

func buildRecord(obj map[string]any, recordKey string) Record {
	rec := Record{}
	for key, value := range obj {
		if recordKey == recordKeyUser && omitUserFields[key] {
			continue
		}
		rec[key] = asString(value)
	}

	guid := asString(obj["@GUID"])
	if guid == "" {
		guid = asString(obj["GUID"])
	}
	rec["guid"] = guid

	switch recordKey {
	case recordKeyUser:
		promote(rec, obj, "name", "Name")
		promote(rec, obj, "fullName", "FullName")
		promote(rec, obj, "extension", "Extension")
		promote(rec, obj, "assignedPackage", "AssignedPackage")
	case recordKeyExtension:
		promote(rec, obj, "id", "Id")
		promote(rec, obj, "extension", "Extension")
		promote(rec, obj, "typeInfo", "TypeInfo")
		promote(rec, obj, "callerDisplayType", "CallerDisplayType")
		promote(rec, obj, "module", "Module")
		promote(rec, obj, "port", "Port")
		promote(rec, obj, "location", "Location")
	case recordKeyLicense:
		promote(rec, obj, "licenseKey", "LicenseKey")
		promote(rec, obj, "source", "Source")
		promote(rec, obj, "type", "Type")
		promote(rec, obj, "status", "Status")
		promote(rec, obj, "quantity", "Quantity")
		promote(rec, obj, "freeInstances", "FreeInstances")
		promote(rec, obj, "expiryDate", "ExpiryDate")
		promote(rec, obj, "mode", "Mode")
		promote(rec, obj, "displayName", "DisplayName")
	case recordKeySystem:
		promoteSystem(rec, obj)
	}

	return rec
}

func promote(rec Record, obj map[string]any, target string, sources ...string) {
	for _, src := range sources {
		if s := asString(obj[src]); s != "" {
			rec[target] = s
			return
		}
	}
	if _, exists := rec[target]; !exists {
		rec[target] = ""
	}
}

// promoteSystem handles the System record's nested structures: the composed
// firmware version string, LAN addresses, and voicemail type.
func promoteSystem(rec Record, obj map[string]any) {
	promote(rec, obj, "name", "Name", "DisplayName", "SystemName")

	major := asString(obj["MajorVersion"])
	if major != "" {
		rec["version"] = major +
			"." + orZero(asString(obj["MinorVersion"])) +
			"." + orZero(asString(obj["SystemVersionMaint"])) +
			"." + orZero(asString(obj["SystemVersionSpecialRel"])) +
			"." + orZero(asString(obj["SystemVersionFeaturePack"])) +
			" build " + orZero(asString(obj["BuildVersion"]))
	} else {
		rec["version"] = ""
	}

	lans := asObject(obj["LANS"])
	lanRaw := lans["LAN"]
	if lanRaw == nil {
		lanRaw = lans["Lan"]
	}
	var lanEntries []any
	switch v := lanRaw.(type) {
	case []any:
		lanEntries = v
	case nil:
	default:
		lanEntries = []any{v}
	}

	findLanIP := func(id string) string {
		for _, entry := range lanEntries {
			lan := asObject(entry)
			if !strings.EqualFold(asString(lan["@id"]), id) {
				continue
			}
			for _, key := range []string{"IPAddress", "IpAddress", "LANIPAddress", "LANIpAddress"} {
				if ip := asString(lan[key]); ip != "" {
					return ip
				}
			}
		}
		return ""
	}
	rec["lan1IpAddress"] = findLanIP("LAN1")
	rec["lan2IpAddress"] = findLanIP("LAN2")

	voicemail := asObject(obj["Voicemail"])
	vmType := asString(voicemail["Type"])
	if vmType == "" {
		vmType = asString(voicemail["type"])
	}
	rec["voicemailType"] = vmType
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// asString flattens any JSON value: nil becomes "", scalars keep their
// literal rendering, and nested structures collapse to compact JSON.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

var (
	userBlockRe   = regexp.MustCompile(`(?s)<User\b.*?</User>`)
	userGUIDRe    = regexp.MustCompile(`\bGUID="([^"]+)"`)
	userNameRe    = regexp.MustCompile(`(?s)<Name>(.*?)</Name>`)
	userFullRe    = regexp.MustCompile(`(?s)<FullName>(.*?)</FullName>`)
	userExtRe     = regexp.MustCompile(`(?s)<Extension>(.*?)</Extension>`)
	userPackageRe = regexp.MustCompile(`(?s)<AssignedPackage>(.*?)</AssignedPackage>`)
)

// parseUsersXML is a deliberately minimal extraction for the one legacy
// firmware line that still answers in XML. It covers the User shape only
// and makes no attempt at general XML correctness.
func parseUsersXML(body string) []Record {
	var records []Record
	for _, block := range userBlockRe.FindAllString(body, -1) {
		rec := Record{
			"guid":            firstGroup(userGUIDRe, block),
			"name":            firstGroup(userNameRe, block),
			"fullName":        firstGroup(userFullRe, block),
			"extension":       firstGroup(userExtRe, block),
			"assignedPackage": firstGroup(userPackageRe, block),
		}
		if rec["guid"] != "" || rec["name"] != "" {
			records = append(records, rec)
		}
	}
	if records == nil {
		records = []Record{}
	}
	return records
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
