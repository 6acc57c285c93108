// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"encoding/json"
	"unicode/utf16"
)

// MaxOptionsPerVote caps the optionIds array.
const MaxOptionsPerVote = 10

// VotePayload is a vote request body that passed validation.
type VotePayload struct {
	PollID    string
	OptionID  string
	OptionIDs []string
}

// ValidationResult lists every violation found; Valid is true only when
// Errors is empty.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ParseOptions fills legacy fields the route makes redundant.
type ParseOptions struct {
	// RoutePollID is used when the body has no pollId.
	RoutePollID string
	// InferOptionID uses the first optionIds entry when the body has no optionId.
	InferOptionID bool
}

// ParseVotePayload decodes body into a VotePayload, collecting every field
// error rather than stopping at the first. It never fails: a body that is
// not a JSON object is validated as an empty one.
func ParseVotePayload(body []byte, opts ParseOptions) (VotePayload, ValidationResult) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		fields = map[string]json.RawMessage{}
	}

	var payload VotePayload
	errs := []string{}

	pollID, hasPollID := stringField(fields, "pollId")
	if _, present := fields["pollId"]; !present && opts.RoutePollID != "" {
		pollID, hasPollID = opts.RoutePollID, true
	}
	if !hasPollID {
		errs = append(errs, MsgPollIDRequired)
	}
	payload.PollID = pollID

	optionIDs, isArray := stringArrayField(fields, "optionIds")

	optionID, hasOptionID := stringField(fields, "optionId")
	if _, present := fields["optionId"]; !present && opts.InferOptionID && len(optionIDs) > 0 && optionIDs[0] != "" {
		optionID, hasOptionID = optionIDs[0], true
	}
	if !hasOptionID {
		errs = append(errs, MsgOptionIDRequired)
	}
	payload.OptionID = optionID

	if !isArray || len(optionIDs) == 0 {
		errs = append(errs, MsgNoOptions)
	}
	if optionsLength(fields["optionIds"], optionIDs, isArray) > MaxOptionsPerVote {
		errs = append(errs, MsgTooManyOptions)
	}
	payload.OptionIDs = optionIDs

	return payload, ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// stringField reports the value of a non-empty string field.
func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// optionsLength is the length the size cap applies to. Browser clients
// measure a string in UTF-16 units, so a string sent in place of the array
// is measured the same way.
func optionsLength(raw json.RawMessage, optionIDs []string, isArray bool) int {
	if isArray {
		return len(optionIDs)
	}
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return 0
	}
	return len(utf16.Encode([]rune(s)))
}

// stringArrayField decodes an array field. Non-string elements decode as ""
// so they fail option membership later instead of being dropped.
func stringArrayField(fields map[string]json.RawMessage, name string) ([]string, bool) {
	raw, ok := fields[name]
	if !ok {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, false
	}
	out := make([]string, len(elems))
	for i, elem := range elems {
		var s string
		if json.Unmarshal(elem, &s) == nil {
			out[i] = s
		}
	}
	return out, true
}
