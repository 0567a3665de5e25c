package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"rental_valuation/pkg/core/apperr"
)

// ErrNoJSONObject is returned when the text contains no '{' at all.
var ErrNoJSONObject = errors.New("no JSON object in text")

// ExtractJSONObject returns the span from the first '{' to the last '}'.
// If there is no closing brace the tail from '{' is returned so the repair
// step can still close it.
func ExtractJSONObject(input string) (string, error) {
	start := strings.IndexByte(input, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}
	end := strings.LastIndexByte(input, '}')
	if end < start {
		return input[start:], nil
	}
	return input[start : end+1], nil
}

// RepairJSON fixes common model output defects: missing quotes, single
// quotes, trailing commas, unclosed objects, comments.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(hjsonData), &result); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %w", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %w", err)
	}
	return string(jsonBytes), nil
}

// SmartParse tries multiple parsing strategies to decode input into schema.
// Order of attempts:
// 1. Standard JSON parse
// 2. JSON repair
// 3. Hjson parse (most lenient)
func SmartParse(input string, schema interface{}) (string, error) {
	firstErr := json.Unmarshal([]byte(input), schema)
	if firstErr == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if hjsonResult, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(hjsonResult), schema); err == nil {
			return hjsonResult, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: %w", firstErr)
}

// MsgUnparseable is the user-facing message for a reply no parser accepts.
const MsgUnparseable = "AIの応答を解析できませんでした"

// ParseModelJSON locates the JSON object in a free-text model reply and
// decodes it into v. A fenced ```json block is preferred when present.
// Failures are Unparseable errors that carry the raw reply.
func ParseModelJSON(reply string, v interface{}) error {
	candidates := FencedJSONBlocks(reply)
	candidates = append(candidates, reply)

	var lastErr error = ErrNoJSONObject
	for _, candidate := range candidates {
		object, err := ExtractJSONObject(candidate)
		if err != nil {
			continue
		}
		if _, err := SmartParse(object, v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return apperr.Unparseable(MsgUnparseable, reply, lastErr)
}
