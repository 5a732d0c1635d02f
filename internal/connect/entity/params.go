package entity

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// ParseCallbackURL extracts the callback parameters from the query string and
// the fragment. Query values win over fragment values.
func ParseCallbackURL(raw string) (CallbackParams, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CallbackParams{}, err
	}

	params := ParseCallbackQuery(u.Query())

	if u.Fragment == "" {
		return params, nil
	}

	// malformed pairs are skipped, the rest is still usable
	frag, _ := url.ParseQuery(u.Fragment)

	fromFrag := ParseCallbackQuery(frag)
	params.Setup = params.Setup.Merge(fromFrag.Setup)
	if params.SignupData == "" {
		params.SignupData = fromFrag.SignupData
	}

	return params, nil
}

// ParseCallbackQuery reads the callback parameters from q. Setup identifiers
// come from the explicit parameters first, then from a JSON object under
// "setup" or "data".
func ParseCallbackQuery(q url.Values) CallbackParams {
	params := CallbackParams{
		Code:             strings.TrimSpace(q.Get("code")),
		State:            strings.TrimSpace(q.Get("state")),
		Error:            strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
		Shop:             strings.TrimSpace(q.Get("shop")),
		Setup: SetupContext{
			WabaID:        strings.TrimSpace(q.Get(KeyWabaID)),
			PhoneNumberID: strings.TrimSpace(q.Get(KeyPhoneNumberID)),
			BusinessID:    strings.TrimSpace(q.Get(KeyBusinessID)),
		},
	}

	for _, key := range []string{"setup", "data"} {
		blob := strings.TrimSpace(q.Get(key))
		if blob == "" {
			continue
		}

		fields, ok := decodeObject([]byte(blob))
		if !ok {
			continue
		}

		params.Setup = params.Setup.Merge(SetupFromFields(fields))
		if params.SignupData == "" {
			params.SignupData = blob
		}
	}

	return params
}

// SetupFromFields reads the setup identifiers out of a decoded JSON object.
// Identifiers may be JSON strings or numbers.
func SetupFromFields(fields map[string]json.RawMessage) SetupContext {
	return SetupContext{
		WabaID:        IDValue(fields[KeyWabaID]),
		PhoneNumberID: IDValue(fields[KeyPhoneNumberID]),
		BusinessID:    IDValue(fields[KeyBusinessID]),
	}
}

// IDValue renders a JSON string or number as a string. Anything else is "".
func IDValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// TextValue renders a JSON string as is and any other JSON value as its
// compact encoding.
func TextValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

func decodeObject(b []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}
